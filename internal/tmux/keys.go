package tmux

import (
	"fmt"
	"strings"
)

var namedKeys = map[string]string{
	"enter":     "Enter",
	"return":    "Enter",
	"escape":    "Escape",
	"esc":       "Escape",
	"tab":       "Tab",
	"shift+tab": "BTab",
	"backspace": "BSpace",
	"delete":    "DC",
	"insert":    "IC",
	"space":     "Space",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "PageUp",
	"page_up":   "PageUp",
	"pagedown":  "PageDown",
	"page_down": "PageDown",
}

// KeyName translates a press target such as "enter", "ctrl+c" or "f2" into
// the tmux key name send-keys expects. Single characters pass through.
func KeyName(target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("empty key")
	}
	if len([]rune(target)) == 1 {
		return target, nil
	}

	key := strings.ToLower(strings.TrimSpace(target))
	if name, ok := namedKeys[key]; ok {
		return name, nil
	}

	if n, ok := functionKey(key); ok {
		return fmt.Sprintf("F%d", n), nil
	}

	for prefix, mod := range map[string]string{"ctrl+": "C-", "alt+": "M-", "meta+": "M-"} {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		base, err := KeyName(key[len(prefix):])
		if err != nil {
			return "", fmt.Errorf("key %q: %w", target, err)
		}
		return mod + base, nil
	}

	return "", fmt.Errorf("unknown key %q", target)
}

func functionKey(key string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(key, "f%d", &n); err != nil {
		return 0, false
	}
	if fmt.Sprintf("f%d", n) != key || n < 1 || n > 12 {
		return 0, false
	}
	return n, true
}

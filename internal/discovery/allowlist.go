package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// ParseSubscriptionAllowList parses a subscription allow-list. Comments and
// trailing commas are tolerated. Accepted shapes:
//
//	["sub-1", "sub-2"]
//	{"subscriptions": ["sub-1", "sub-2"]}
//	{"subscriptions": [{"id": "sub-1"}, {"subscriptionId": "sub-2"}]}
func ParseSubscriptionAllowList(data []byte) ([]string, error) {
	stripped := jsonc.ToJSON(data)

	var raw json.RawMessage
	if err := json.Unmarshal(stripped, &raw); err != nil {
		return nil, fmt.Errorf("parse subscription list: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		var doc struct {
			Subscriptions []json.RawMessage `json:"subscriptions"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse subscription list: %w", err)
		}
		entries = doc.Subscriptions
	}

	ids := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		id, err := entryID(e)
		if err != nil {
			return nil, fmt.Errorf("subscription entry %d: %w", i, err)
		}
		key := strings.ToLower(id)
		if seen[key] {
			continue
		}
		seen[key] = true
		ids = append(ids, id)
	}

	return ids, nil
}

func entryID(e json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(e, &id); err == nil {
		if id = strings.TrimSpace(id); id == "" {
			return "", fmt.Errorf("empty subscription id")
		}
		return id, nil
	}

	var obj struct {
		ID             string `json:"id"`
		SubscriptionID string `json:"subscriptionId"`
	}
	if err := json.Unmarshal(e, &obj); err != nil {
		return "", fmt.Errorf("expected string or object: %w", err)
	}
	id = strings.TrimSpace(obj.SubscriptionID)
	if id == "" {
		id = strings.TrimSpace(obj.ID)
	}
	if id == "" {
		return "", fmt.Errorf("missing id")
	}
	return id, nil
}

// LoadSubscriptionAllowList reads and parses an allow-list file
func LoadSubscriptionAllowList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subscription list %s: %w", path, err)
	}

	ids, err := ParseSubscriptionAllowList(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ids, nil
}

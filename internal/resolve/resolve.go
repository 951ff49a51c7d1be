// Package resolve maps original recipient addresses to forwarding
// destinations using full-address, domain, and local-part precedence.
package resolve

import "strings"

// Resolve returns the forwarding destinations for the given original
// recipients. Each recipient is lowercased and tested against the mapping
// keys in precedence order: exact full address, then domain (the substring
// from the last "@"), then local part (the substring before it). The first
// matching rule wins per recipient; destinations are appended in recipient
// order and duplicates across recipients are preserved.
//
// The second return value is the last original recipient that matched any
// rule, kept for use as the reply source address. An empty destination list
// means no forwarding is configured for any recipient.
func Resolve(originalRecipients []string, forwardMapping map[string][]string) ([]string, string) {
	var newRecipients []string
	var chosenOriginal string

	// Mapping keys are case-insensitive.
	mapping := make(map[string][]string, len(forwardMapping))
	for k, v := range forwardMapping {
		mapping[strings.ToLower(k)] = v
	}

	for _, origEmail := range originalRecipients {
		key := strings.ToLower(origEmail)
		if dests, ok := mapping[key]; ok {
			newRecipients = append(newRecipients, dests...)
			chosenOriginal = origEmail
			continue
		}

		var domain, user string
		if pos := strings.LastIndex(key, "@"); pos == -1 {
			user = key
		} else {
			domain = key[pos:]
			user = key[:pos]
		}

		if domain != "" {
			if dests, ok := mapping[domain]; ok {
				newRecipients = append(newRecipients, dests...)
				chosenOriginal = origEmail
				continue
			}
		}
		if user != "" {
			if dests, ok := mapping[user]; ok {
				newRecipients = append(newRecipients, dests...)
				chosenOriginal = origEmail
			}
		}
	}

	return newRecipients, chosenOriginal
}

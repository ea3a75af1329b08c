// Package extract turns raw backend payloads into flat suggestion lists.
//
// Extraction is lenient by design: search-result payloads and markup
// change without notice, so missing or mismatched structure degrades to
// an empty result instead of an error.
package extract

import (
	"encoding/json"
)

// ItemKind tags a decoded suggestion item with its origin block.
type ItemKind string

const (
	KindAutocomplete  ItemKind = "autocomplete"
	KindRelatedSearch ItemKind = "related_search"
	KindPeopleAlsoAsk ItemKind = "people_also_ask"
	KindKeywordData   ItemKind = "keyword_data"
)

// Item is a single suggestion decoded from a backend payload. Decoding
// happens once at this boundary; downstream code switches on Kind
// instead of re-checking raw type tags.
type Item struct {
	Kind ItemKind
	Text string
}

// dataforseoEnvelope mirrors the tasks[].result[].items[] nesting shared
// by all DataForSEO v3 live endpoints.
type dataforseoEnvelope struct {
	Tasks []struct {
		Result []struct {
			Items []json.RawMessage `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

// autocomplete items carry the suggestion under one of several keys
// depending on endpoint version; first present non-empty key wins.
var autocompleteKeys = []string{"suggestion", "text", "value", "query"}
var relatedKeys = []string{"title", "keyword", "text", "suggestion"}
var questionKeys = []string{"title", "question", "text"}

// DataForSEOItems walks a DataForSEO live response and returns every
// suggestion item it recognizes, in payload order. Unknown item types
// and malformed entries are skipped silently.
func DataForSEOItems(payload []byte) []Item {
	var env dataforseoEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil
	}

	var items []Item
	for _, task := range env.Tasks {
		for _, res := range task.Result {
			for _, raw := range res.Items {
				items = append(items, decodeItem(raw)...)
			}
		}
	}
	return items
}

// Texts filters items to the given kinds and returns their text in
// order. With no kinds given, all items pass.
func Texts(items []Item, kinds ...ItemKind) []string {
	var out []string
	for _, it := range items {
		if len(kinds) > 0 && !kindIn(it.Kind, kinds) {
			continue
		}
		if it.Text != "" {
			out = append(out, it.Text)
		}
	}
	return out
}

func kindIn(k ItemKind, kinds []ItemKind) bool {
	for _, c := range kinds {
		if k == c {
			return true
		}
	}
	return false
}

func decodeItem(raw json.RawMessage) []Item {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}

	switch stringField(obj, "type") {
	case "autocomplete":
		if s := firstString(obj, autocompleteKeys); s != "" {
			return []Item{{Kind: KindAutocomplete, Text: s}}
		}
	case "related_searches":
		return nestedItems(obj, KindRelatedSearch, relatedKeys)
	case "people_also_ask":
		return nestedItems(obj, KindPeopleAlsoAsk, questionKeys)
	case "keyword_data":
		var kd struct {
			KeywordData struct {
				Keyword string `json:"keyword"`
			} `json:"keyword_data"`
		}
		if err := json.Unmarshal(raw, &kd); err == nil && kd.KeywordData.Keyword != "" {
			return []Item{{Kind: KindKeywordData, Text: kd.KeywordData.Keyword}}
		}
	}
	return nil
}

// nestedItems handles block items (related searches, PAA) whose inner
// "items" list may hold either bare strings or objects.
func nestedItems(obj map[string]json.RawMessage, kind ItemKind, keys []string) []Item {
	rawList, ok := obj["items"]
	if !ok {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(rawList, &entries); err != nil {
		return nil
	}

	var out []Item
	for _, entry := range entries {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			if s != "" {
				out = append(out, Item{Kind: kind, Text: s})
			}
			continue
		}

		var inner map[string]json.RawMessage
		if err := json.Unmarshal(entry, &inner); err != nil {
			continue
		}
		if s := firstString(inner, keys); s != "" {
			out = append(out, Item{Kind: kind, Text: s})
		}
	}
	return out
}

func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func firstString(obj map[string]json.RawMessage, keys []string) string {
	for _, k := range keys {
		if s := stringField(obj, k); s != "" {
			return s
		}
	}
	return ""
}

// serpapiEnvelope covers the two suggestion blocks magpie consumes from
// a SerpAPI search response.
type serpapiEnvelope struct {
	RelatedSearches []struct {
		Query string `json:"query"`
	} `json:"related_searches"`
	RelatedQuestions []struct {
		Question string `json:"question"`
	} `json:"related_questions"`
}

// SerpAPIItems extracts related searches and PAA questions from a
// SerpAPI JSON response.
func SerpAPIItems(payload []byte) []Item {
	var env serpapiEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil
	}

	var items []Item
	for _, rs := range env.RelatedSearches {
		if rs.Query != "" {
			items = append(items, Item{Kind: KindRelatedSearch, Text: rs.Query})
		}
	}
	for _, q := range env.RelatedQuestions {
		if q.Question != "" {
			items = append(items, Item{Kind: KindPeopleAlsoAsk, Text: q.Question})
		}
	}
	return items
}

package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenPattern = regexp.MustCompile("{(.*?)}")

// ResolveConfigParams interpolates {$.path} tokens in string values of an
// action config against the enrollment's fact snapshot. Maps and lists are
// resolved recursively; non-string values pass through untouched.
func ResolveConfigParams(config map[string]any, fact map[string]any) map[string]any {
	output := make(map[string]any, len(config))
	resolveMap(fact, config, output)
	return output
}

func resolveMap(fact map[string]any, params map[string]any, output map[string]any) {
	for k, v := range params {
		switch value := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			output[k] = out
			resolveMap(fact, value, out)
		case string:
			output[k] = resolveString(fact, value)
		case []any:
			output[k] = resolveList(fact, value)
		default:
			output[k] = v
		}
	}
}

func resolveList(fact map[string]any, list []any) []any {
	output := make([]any, 0, len(list))
	for _, v := range list {
		switch value := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			resolveMap(fact, value, out)
			output = append(output, out)
		case string:
			output = append(output, resolveString(fact, value))
		case []any:
			output = append(output, resolveList(fact, value))
		default:
			output = append(output, v)
		}
	}
	return output
}

func resolveString(fact map[string]any, in string) string {
	tokens := tokenPattern.FindAllString(in, -1)
	out := in
	for _, token := range tokens {
		tmatch := strings.ReplaceAll(token, "{", "")
		tmatch = strings.ReplaceAll(tmatch, "}", "")
		if !strings.HasPrefix(tmatch, "$") {
			continue
		}
		value, err := jsonpath.JsonPathLookup(fact, tmatch)
		if err != nil {
			value = ""
		}
		out = strings.ReplaceAll(out, token, fmt.Sprintf("%v", value))
	}
	return out
}

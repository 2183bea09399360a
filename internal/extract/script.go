package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

// ScriptData runs the page's inline scripts in a bare JS runtime and returns
// the value assigned to variable (e.g. "window.runParams"). It returns nil
// when the variable is never set.
func ScriptData(doc *goquery.Document, address, variable string) map[string]interface{} {
	if doc == nil || variable == "" {
		return nil
	}

	vm := goja.New()

	// Just enough of a browser for data assignments to succeed
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("document", map[string]interface{}{
		"location": map[string]interface{}{"href": address},
	})
	vm.Set("location", map[string]interface{}{"href": address})
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	vm.Set("console", map[string]interface{}{"log": noop, "error": noop, "warn": noop})

	doc.Find("script").Each(func(i int, sel *goquery.Selection) {
		if _, external := sel.Attr("src"); external {
			return
		}
		if t, ok := sel.Attr("type"); ok && t != "" && !strings.Contains(t, "javascript") {
			return
		}
		src := sel.Text()
		if strings.TrimSpace(src) == "" {
			return
		}
		// Most scripts fail without a DOM; the data assignment usually runs first
		if _, err := vm.RunString(src); err != nil {
			log.Trace().Err(err).Int("script", i).Msg("Inline script failed")
		}
	})

	val, err := vm.RunString("typeof " + variable + " === 'undefined' ? undefined : " + variable)
	if err != nil || val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	data, ok := val.Export().(map[string]interface{})
	if !ok {
		return nil
	}
	return data
}

// lookupPath walks a dot-separated path through nested maps
func lookupPath(data map[string]interface{}, path string) (interface{}, bool) {
	if data == nil || path == "" {
		return nil, false
	}
	var cur interface{} = data
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

func lookupString(data map[string]interface{}, path string) string {
	v, ok := lookupPath(data, path)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

func lookupPrice(data map[string]interface{}, path string) *float64 {
	v, ok := lookupPath(data, path)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case int64:
		f := float64(t)
		return &f
	case float64:
		return &t
	case string:
		return pricePtr(t)
	}
	return nil
}

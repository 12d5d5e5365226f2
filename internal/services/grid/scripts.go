package grid

import (
	"encoding/json"
	"fmt"
)

// pendingFlag is set on the window before a triggering action. A page reload
// discards it, an in-place refresh must clear it through the grid's own scripts.
const pendingFlag = "__gridcheckPending"

// jsString quotes s as a JavaScript string literal
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func markPendingScript() string {
	return fmt.Sprintf(`(function(){ window.%s = true; return true; })()`, pendingFlag)
}

// settledScript reports whether the document is loaded, the grid present and
// no busy indicator showing
func settledScript(table, loading string) string {
	return fmt.Sprintf(`(function(){
		if (window.%s) { return false; }
		if (document.readyState !== 'complete') { return false; }
		if (!document.querySelector(%s)) { return false; }
		var loading = %s;
		if (loading) {
			var busy = document.querySelector(loading);
			if (busy && busy.offsetParent !== null) { return false; }
		}
		return true;
	})()`, pendingFlag, jsString(table), jsString(loading))
}

func countScript(selector string) string {
	return fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
}

func outerHTMLScript(selector string) string {
	return fmt.Sprintf(`(function(){ var el = document.querySelector(%s); return el ? el.outerHTML : ""; })()`, jsString(selector))
}

func textScript(selector string) string {
	return fmt.Sprintf(`(function(){ var el = document.querySelector(%s); return el ? el.textContent : ""; })()`, jsString(selector))
}

// setInputScript enters value the way typing would, firing input then change
func setInputScript(selector, value string) string {
	return fmt.Sprintf(`(function(){
		var el = document.querySelector(%s);
		if (!el) { return false; }
		el.focus();
		el.value = %s;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, jsString(selector), jsString(value))
}

// selectOptionScript picks the option with the given label and fires change
func selectOptionScript(selector, label string) string {
	return fmt.Sprintf(`(function(){
		var el = document.querySelector(%s);
		if (!el || !el.options) { return false; }
		var wanted = %s;
		for (var i = 0; i < el.options.length; i++) {
			if (el.options[i].textContent.trim() === wanted) {
				el.value = el.options[i].value;
				el.dispatchEvent(new Event('change', { bubbles: true }));
				return true;
			}
		}
		return false;
	})()`, jsString(selector), jsString(label))
}

// clickRowControlScript clicks the control inside a row's cell; row is 1-based
func clickRowControlScript(table, rows, cell, control string, row int) string {
	return fmt.Sprintf(`(function(){
		var rows = document.querySelectorAll(%s);
		var row = rows[%d];
		if (!row) { return false; }
		var target = row.querySelector(%s);
		if (!target) { return false; }
		target.click();
		return true;
	})()`, jsString(table+" "+rows), row-1, jsString(cell+" "+control))
}

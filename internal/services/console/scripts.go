package console

import (
	"encoding/json"
	"fmt"
)

// Navigation states reported by navigationStateScript
const (
	stateLeaving = "leaving" // the click started a navigation, old document still shown
	stateLoading = "loading" // a new document is still loading
	stateStayed  = "stayed"  // no navigation so far and the target is present
	stateMissing = "missing" // the target is not present yet
	stateArrived = "arrived" // a new, complete document carries the target
)

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// prepareClickScript arms the leave markers and clicks the entry's link (or the entry itself)
func prepareClickScript(selector string) string {
	return fmt.Sprintf(`(function(){
		var el = document.querySelector(%s);
		if (!el) { return false; }
		window.__gridcheckMenu = true;
		window.__gridcheckLeaving = false;
		window.addEventListener('beforeunload', function(){ window.__gridcheckLeaving = true; }, { once: true });
		(el.querySelector('a') || el).click();
		return true;
	})()`, jsString(selector))
}

func navigationStateScript(next string) string {
	return fmt.Sprintf(`(function(){
		var present = !!document.querySelector(%s);
		if (window.__gridcheckMenu) {
			if (window.__gridcheckLeaving) { return %q; }
			return present ? %q : %q;
		}
		if (document.readyState !== 'complete') { return %q; }
		return present ? %q : %q;
	})()`, jsString(next), stateLeaving, stateStayed, stateMissing, stateLoading, stateArrived, stateMissing)
}

// titleScript reads the heading text, falling back to the document title
func titleScript(selector string) string {
	return fmt.Sprintf(`(function(){
		var sel = %s;
		var el = sel ? document.querySelector(sel) : null;
		var text = el ? el.textContent : document.title;
		return (text || "").replace(/\s+/g, " ").trim();
	})()`, jsString(selector))
}

package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Client-side events carried in HX-Trigger.
const (
	eventReloaded = "dashboard:reloaded"
	eventNotice   = "show-notification"
)

type noticeKind string

const (
	noticeSuccess noticeKind = "success"
	noticeError   noticeKind = "error"
)

// fragment is an HTML snippet answered to an htmx request together with
// the events the page should react to.
type fragment struct {
	status int
	html   string
	events map[string]any
}

// newFragment wraps already escaped html.
func newFragment(status int, html string) *fragment {
	return &fragment{status: status, html: html, events: make(map[string]any)}
}

// errorFragment escapes msg and raises an error notice with it.
func errorFragment(status int, msg string) *fragment {
	f := newFragment(status, `<span class="error">`+template.HTMLEscapeString(msg)+`</span>`)
	return f.notice(noticeError, msg)
}

func (f *fragment) event(name string, payload any) *fragment {
	f.events[name] = payload
	return f
}

// reloaded tells the page its sections are stale.
func (f *fragment) reloaded(cleared int) *fragment {
	return f.event(eventReloaded, map[string]int{"cleared": cleared})
}

func (f *fragment) notice(kind noticeKind, msg string) *fragment {
	return f.event(eventNotice, map[string]string{"type": string(kind), "message": msg})
}

func (f *fragment) write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if len(f.events) > 0 {
		if b, err := json.Marshal(f.events); err == nil {
			w.Header().Set("HX-Trigger", string(b))
		}
	}
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.html))
}

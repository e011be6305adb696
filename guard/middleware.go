package guard

import "net/http"

// NoticeHeader carries the denial notice on redirect responses.
const NoticeHeader = "X-Console-Notice"

// Middleware guards an HTTP handler with t. Denied requests receive
// 303 See Other to the decision's redirect target.
func Middleware(t *Table) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if t == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			d := t.Navigate(r.Context(), r.URL.RequestURI())
			if d.Allow {
				next.ServeHTTP(w, r)
				return
			}
			if d.Notice != "" {
				w.Header().Set(NoticeHeader, d.Notice)
			}
			http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
		})
	}
}

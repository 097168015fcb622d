package http

import (
	"net/http"
	"strconv"
	"strings"

	"ocorrencias/internal/middleware/trace"

	"github.com/go-chi/render"
)

// errorResponse is the JSON body of every API error.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSONError sends {"error": msg} with the given status.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatInt renders counts with a dot as thousands separator (pt-BR).
func formatInt(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// formatPercent renders a share with one decimal and a comma (pt-BR).
func formatPercent(p float64) string {
	return strings.Replace(strconv.FormatFloat(p, 'f', 1, 64), ".", ",", 1) + "%"
}

func requestID(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}

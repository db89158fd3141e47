// Package mockapi serves a healthy stand-in for the BritEdge API and website.
// It backs the mock command and end-to-end tests; Options degrade it on purpose.
package mockapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Options alter the otherwise healthy responses.
type Options struct {
	// Latency delays every API response.
	Latency time.Duration
	// Malformed lists API endpoint names that answer with truncated JSON.
	Malformed []string
	// Headers overrides the website security headers; an empty value removes one.
	Headers map[string]string
	// AllowOrigin is the API's Access-Control-Allow-Origin. Defaults to "*".
	AllowOrigin string
}

// SecurityHeaders are the headers the healthy website sends.
var SecurityHeaders = map[string]string{
	"X-Frame-Options":           "DENY",
	"X-Content-Type-Options":    "nosniff",
	"X-XSS-Protection":          "1; mode=block",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
}

// Home is the website's landing page.
const Home = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>BritEdge Manufacturing</title>
  <link href="https://cdn.jsdelivr.net/npm/tailwindcss@2/dist/tailwind.min.css" rel="stylesheet">
</head>
<body class="bg-gray-50">
  <nav>
    <a class="nav-link" href="/">Home</a>
    <a class="nav-link" href="/about">About</a>
    <a class="nav-link" href="/customers">Customers</a>
  </nav>
  <h1>BritEdge Manufacturing</h1>
  <p>Precision engineering since 1987.</p>
</body>
</html>
`

// Handler returns the mock website at / and the API under /api.
func Handler(opts Options, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = "*"
	}
	malformed := make(map[string]bool, len(opts.Malformed))
	for _, name := range opts.Malformed {
		malformed[name] = true
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.With(securityHeaders(opts.Headers)).Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(Home))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors(opts.AllowOrigin))
		if opts.Latency > 0 {
			r.Use(delay(opts.Latency))
		}
		for name, payload := range fixtures() {
			r.Get("/"+name, payloadHandler(payload, malformed[name]))
		}
	})

	return r
}

func fixtures() map[string]ldvalue.Value {
	return map[string]ldvalue.Value{
		"GetBritEdgeInfo": ldvalue.ObjectBuild().
			Set("company", ldvalue.ObjectBuild().
				Set("name", ldvalue.String("BritEdge Manufacturing Ltd")).
				Set("founded", ldvalue.Int(1987)).
				Build()).
			Set("stats", ldvalue.ObjectBuild().
				Set("totalEmployees", ldvalue.Int(250)).
				Set("countries", ldvalue.Int(4)).
				Build()).
			Set("locations", ldvalue.ArrayOf(
				ldvalue.ObjectBuild().Set("city", ldvalue.String("Sheffield")).Set("type", ldvalue.String("HQ")).Build(),
				ldvalue.ObjectBuild().Set("city", ldvalue.String("Birmingham")).Set("type", ldvalue.String("Plant")).Build(),
			)).
			Build(),
		"GetTestimonials": ldvalue.ObjectBuild().
			Set("testimonials", ldvalue.ArrayOf(
				testimonial("Northwind Engineering", 5, "Consistently within tolerance and on time."),
				testimonial("Albion Rail", 4, "Great partner for prototype runs."),
			)).
			Build(),
		"GetCustomers": ldvalue.ObjectBuild().
			Set("customers", ldvalue.ArrayOf(
				customer(1, "Northwind Engineering"),
				customer(2, "Albion Rail"),
				customer(3, "Pennine Aerospace"),
			)).
			Build(),
	}
}

func testimonial(client string, rating int, quote string) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("client", ldvalue.String(client)).
		Set("rating", ldvalue.Int(rating)).
		Set("quote", ldvalue.String(quote)).
		Build()
}

func customer(id int, name string) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("customerId", ldvalue.Int(id)).
		Set("companyName", ldvalue.String(name)).
		Build()
}

func payloadHandler(payload ldvalue.Value, malformed bool) http.HandlerFunc {
	body := []byte(payload.JSONString())
	if malformed {
		body = body[:len(body)/2]
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

// --- Middleware ---

func securityHeaders(overrides map[string]string) func(http.Handler) http.Handler {
	headers := make(map[string]string, len(SecurityHeaders))
	for k, v := range SecurityHeaders {
		headers[k] = v
	}
	for k, v := range overrides {
		k = http.CanonicalHeaderKey(k)
		if v == "" {
			delete(headers, k)
			continue
		}
		headers[k] = v
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, v := range headers {
				w.Header().Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			next.ServeHTTP(w, r)
		})
	}
}

func delay(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("mock request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}

package api

import (
	"html/template"
	"net/http"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}}</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 640px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2.5rem; box-shadow: 0 25px 50px rgba(0,0,0,0.4); }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; color: #f8fafc; }
  .subtitle { color: #94a3b8; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  a { color: #38bdf8; text-decoration: none; }
  pre { background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 1rem; overflow-x: auto; font-size: 0.85rem; line-height: 1.5; }
  code { font-family: "SF Mono", "Fira Code", Menlo, monospace; }
  .endpoint { font-family: "SF Mono", monospace; font-size: 0.9rem; color: #a5b4fc; }
  p { margin-bottom: 0.25rem; }
</style>
</head>
<body>
<div class="card">
  <h1>{{.}}</h1>
  <p class="subtitle">Documentation Q&amp;A with citations, plus signals about where the docs fall short.</p>

  <div class="section">
    <div class="section-title">Ask a question</div>
    <pre><code>curl -s localhost:8080/ask -d '{"query":"How do indexes work in v1.0?"}'</code></pre>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><span class="endpoint">POST /ask</span> &middot; answer with citations</p>
    <p><a href="/top-unanswered" class="endpoint">/top-unanswered</a> &middot; most frequent unanswered questions</p>
    <p><a href="/issues?window=24h" class="endpoint">/issues</a> &middot; documentation issues by section</p>
    <p><a href="/metrics" class="endpoint">/metrics</a> &middot; Prometheus metrics</p>
    <p><a href="/healthz" class="endpoint">/healthz</a> &middot; health check</p>
    <p><span class="endpoint">/mcp</span> &middot; MCP Streamable HTTP</p>
  </div>
</div>
</body>
</html>`))

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler(app string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = landingTemplate.Execute(w, app)
	}
}

package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/formsync/internal/pkg/httputil"
	"github.com/ignite/formsync/internal/pkg/logger"
	"github.com/ignite/formsync/internal/pkg/tmpl"
	"github.com/ignite/formsync/internal/service/dispatch"
)

const pageLayout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="robots" content="noindex">
<title>{{ title | escape }}</title>
<style>
body { font-family: sans-serif; max-width: 40em; margin: 4em auto; color: #222; }
.box { padding: 1.5em; border-radius: 6px; }
.ok { background: #e8f5e9; border: 1px solid #81c784; }
.warn { background: #fff8e1; border: 1px solid #ffb74d; }
.err { background: #ffebee; border: 1px solid #e57373; }
dt { font-weight: bold; }
</style>
</head>
<body>
`

var pages = tmpl.MustParse(map[string]string{
	"processed": pageLayout + `<div class="box ok">
<h1>Contact transferred</h1>
<p>The contact was created or updated in ActiveCampaign.</p>
<dl>
<dt>Email</dt><dd>{{ email | escape }}</dd>
<dt>Contact ID</dt><dd>{{ contact_id | escape }}</dd>
{% if list_id != "" %}<dt>List ID</dt><dd>{{ list_id | escape }}</dd>{% endif %}
</dl>
</div>
</body>
</html>
`,
	"invalid": pageLayout + `<div class="box warn">
<h1>Link no longer valid</h1>
<p>This transfer link is unknown, was already used or has expired.</p>
</div>
</body>
</html>
`,
	"failed": pageLayout + `<div class="box err">
<h1>Transfer failed</h1>
<p>The contact could not be transferred to ActiveCampaign. Please try again later using the same link.</p>
</div>
</body>
</html>
`,
})

// ExecuteTransfer completes a delayed transfer from its approval link.
func (h *Handlers) ExecuteTransfer(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")
	res := h.dispatcher.Execute(r.Context(), tok)

	var (
		name   string
		status int
		vars   = map[string]interface{}{}
	)
	switch res.Outcome {
	case dispatch.ExecutionProcessed:
		name, status = "processed", http.StatusOK
		vars["title"] = "Contact transferred"
		vars["email"] = res.Email
		vars["contact_id"] = res.ContactID
		vars["list_id"] = res.ListID
	case dispatch.ExecutionInvalid:
		name, status = "invalid", http.StatusNotFound
		vars["title"] = "Link no longer valid"
	default:
		name, status = "failed", http.StatusBadGateway
		vars["title"] = "Transfer failed"
	}

	body, err := pages.Render(name, vars)
	if err != nil {
		logger.Error("web: render transfer page", "page", name, "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	httputil.HTML(w, status, body)
}

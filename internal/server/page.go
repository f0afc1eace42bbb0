package server

import (
	"bytes"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"doris-rag/internal/i18n"
)

var pageTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Doris RAG</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 0; background: #f5f6f8; }
#chat { max-width: 820px; margin: 0 auto; padding: 24px 16px 120px; }
.msg { white-space: pre-wrap; padding: 10px 14px; border-radius: 8px; margin: 8px 0; line-height: 1.5; }
.user { background: #2f6fed; color: #fff; margin-left: 20%; }
.assistant { background: #fff; border: 1px solid #dde1e6; margin-right: 20%; }
.sources { font-size: 12px; color: #66707a; margin-top: 6px; }
form { position: fixed; bottom: 0; left: 0; right: 0; display: flex; gap: 8px; padding: 16px; background: #fff; border-top: 1px solid #dde1e6; }
input { flex: 1; padding: 10px; font-size: 15px; border: 1px solid #c8ced4; border-radius: 6px; }
button { padding: 10px 20px; font-size: 15px; border: 0; border-radius: 6px; background: #2f6fed; color: #fff; cursor: pointer; }
button:disabled { background: #9bb4ea; }
</style>
</head>
<body>
<div id="chat"></div>
<form id="form">
<input id="query" autocomplete="off" placeholder="{{.Placeholder}}">
<button id="send" type="submit">{{.Send}}</button>
</form>
<script>
const labels = {{.Labels}};
const history = [];
const chat = document.getElementById("chat");
const input = document.getElementById("query");
const send = document.getElementById("send");

function append(role, text) {
  const div = document.createElement("div");
  div.className = "msg " + role;
  div.textContent = text;
  chat.appendChild(div);
  window.scrollTo(0, document.body.scrollHeight);
  return div;
}

function renderSources(div, sources) {
  if (!sources || sources.length === 0) return;
  const refs = sources.map(s => s.location == null ? s.filename : s.filename + " @ " + JSON.stringify(s.location));
  const p = document.createElement("div");
  p.className = "sources";
  p.textContent = labels.ui_source_ref + refs.join("; ");
  div.appendChild(p);
}

document.getElementById("form").addEventListener("submit", async (e) => {
  e.preventDefault();
  const query = input.value.trim();
  if (!query) return;
  input.value = "";
  append("user", query);
  const pending = append("assistant", labels.ui_thinking);
  send.disabled = true;
  try {
    const resp = await fetch("/api/chat", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ query: query, history: history }),
    });
    const data = await resp.json();
    if (!resp.ok) {
      pending.textContent = labels.ui_error_prefix + (data.detail || resp.status);
      return;
    }
    pending.textContent = data.answer;
    renderSources(pending, data.sources);
    history.push({ role: "user", content: query });
    history.push({ role: "assistant", content: data.answer });
  } catch (err) {
    pending.textContent = labels.ui_request_failed;
  } finally {
    send.disabled = false;
    input.focus();
  }
});
</script>
</body>
</html>
`))

type pageData struct {
	Lang        string
	Placeholder string
	Send        string
	Labels      map[string]string
}

func newPageData(c *i18n.Catalog) pageData {
	labels := make(map[string]string)
	for _, k := range []i18n.Key{i18n.UIThinking, i18n.UIErrorPrefix, i18n.UIRequestFailed, i18n.UISourceRef} {
		labels[string(k)] = c.Get(k)
	}
	return pageData{
		Lang:        c.Get(i18n.HTMLLang),
		Placeholder: c.Get(i18n.UIPlaceholder),
		Send:        c.Get(i18n.UISend),
		Labels:      labels,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, newPageData(s.catalog)); err != nil {
		s.logger.Error("render page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

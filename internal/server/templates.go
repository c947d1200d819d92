package server

const faviconSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
  <rect rx="12" width="64" height="64" fill="#0366d6"/>
  <path d="M26 44L14 32l4-4 8 8 20-20 4 4-24 24z" fill="#fff"/>
 </svg>`

const layoutHTML = `<!doctype html>
<html data-theme="{{.Theme}}"><head><meta charset="utf-8"><title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
{{if not .ThemeStored}}<script>
if (window.matchMedia && window.matchMedia('(prefers-color-scheme: dark)').matches) {
  document.documentElement.setAttribute('data-theme', 'dark');
}
</script>{{end}}
<link rel="icon" href="/favicon.svg" type="image/svg+xml">
<link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/font-awesome/6.5.2/css/all.min.css">
<style>
:root{--bg:#f6f8fa;--fg:#24292e;--card:#fff;--border:#d0d7de;--accent:#0366d6;--muted:#6a737d}
[data-theme="dark"]{--bg:#0d1117;--fg:#c9d1d9;--card:#161b22;--border:#30363d;--accent:#58a6ff;--muted:#8b949e}
body{font-family:system-ui,-apple-system,Segoe UI,Roboto,Ubuntu,Helvetica,Arial,sans-serif;margin:0;background:var(--bg);color:var(--fg)}
header{display:flex;justify-content:space-between;align-items:center;padding:12px 16px;border-bottom:1px solid var(--border);background:var(--card)}
header form{display:inline}
main{max-width:760px;margin:16px auto;padding:0 16px}
button,select,input,textarea{font:inherit;color:inherit;background:var(--card);border:1px solid var(--border);border-radius:4px;padding:6px 10px}
button{cursor:pointer}
a.button{display:inline-block;text-decoration:none;color:inherit;background:var(--card);border:1px solid var(--border);border-radius:4px;padding:6px 10px}
button.primary{background:var(--accent);border-color:var(--accent);color:#fff}
.tabs{display:flex;gap:4px;margin-bottom:12px}
.tab.active{background:var(--accent);color:#fff}
#messages{position:fixed;right:16px;top:64px;display:flex;flex-direction:column;gap:6px;z-index:10}
.message{padding:8px 12px;border:1px solid var(--border);border-left-width:4px;border-radius:4px;background:var(--card)}
.message.error{border-left-color:#d73a49}
.message.success{border-left-color:#28a745}
.message.info{border-left-color:var(--accent)}
#task-form{display:flex;flex-direction:column;gap:8px;margin-bottom:16px}
.toolbar{display:flex;justify-content:space-between;align-items:center;margin-bottom:12px}
.filter-btn.active{background:var(--accent);color:#fff}
.task-card{background:var(--card);border:1px solid var(--border);border-radius:6px;padding:10px 12px;margin-bottom:8px}
.task-card.completed .task-title{text-decoration:line-through;color:var(--muted)}
.task-card .row{display:flex;align-items:center;gap:8px}
.task-card .actions{margin-left:auto;display:flex;gap:4px}
.task-card .actions form{display:inline}
.task-meta{font-size:12px;color:var(--muted);display:flex;gap:12px;margin-top:6px}
.task-description p{margin:6px 0}
.empty-state,.error-state{color:var(--muted);text-align:center;padding:24px}
.error-state{color:#d73a49}
</style>
</head><body>
<header>
  <strong><i class="fas fa-check-square"></i> {{.Title}}</strong>
  <div>
    {{if .User}}<span style="margin-right:8px;">{{.User}}</span>{{end}}
    <form method="post" action="/theme/toggle" id="theme-form">
      <input type="hidden" name="csrf_token" value="{{.CSRF}}"/>
      <input type="hidden" name="current" value="{{.Theme}}"/>
      <button type="submit" id="theme-toggle" title="Toggle theme"><i class="{{.Icon}}"></i></button>
    </form>
    {{if .User}}
    <form method="post" action="/logout">
      <input type="hidden" name="csrf_token" value="{{.CSRF}}"/>
      <button type="submit">Logout</button>
    </form>
    {{end}}
  </div>
</header>
<div id="messages">
{{range .Messages}}<div class="message {{.Kind}}" data-ttl="{{.TTL}}">{{.Text}}</div>{{end}}
</div>
<main>
{{template "content" .}}
</main>
<script>
(function(){
  function arm(el){
    var ttl = parseInt(el.getAttribute('data-ttl') || '0', 10);
    if (ttl > 0) { setTimeout(function(){ el.remove(); }, ttl); }
  }
  document.querySelectorAll('.message[data-ttl]').forEach(arm);
  var shown = document.documentElement.getAttribute('data-theme');
  var current = document.querySelector('#theme-form input[name=current]');
  if (current) { current.value = shown; }
  var icon = document.querySelector('#theme-toggle i');
  if (icon) { icon.className = shown === 'dark' ? 'fas fa-sun' : 'fas fa-moon'; }
  var box = document.getElementById('tasks-container');
  if (!box || !window.EventSource) { return; }
  var es = new EventSource('/events');
  es.addEventListener('render', function(){
    fetch('/tasks/list', {credentials: 'same-origin'})
      .then(function(r){ return r.ok ? r.text() : null; })
      .then(function(html){ if (html !== null) { box.innerHTML = html; } });
  });
  es.addEventListener('message', function(e){
    var m = JSON.parse(e.data);
    var el = document.createElement('div');
    el.className = 'message ' + m.kind;
    el.textContent = m.text;
    el.setAttribute('data-ttl', m.ttl);
    document.getElementById('messages').appendChild(el);
    arm(el);
  });
})();
</script>
</body></html>
{{define "tasklist"}}
{{if .View.Failed}}<p class="error-state">{{.LoadFailedText}}</p>
{{else if .View.Empty}}<p class="empty-state">{{.EmptyText}}</p>
{{else}}{{range .View.Cards}}
<div class="task-card{{if .Completed}} completed{{end}}" data-task-id="{{.ID}}">
  <div class="row">
    <form method="post" action="{{.ToggleURL}}">
      <input type="hidden" name="csrf_token" value="{{$.CSRF}}"/>
      <input type="hidden" name="completed" value="{{if .Completed}}false{{else}}true{{end}}"/>
      <input type="checkbox" class="task-status" {{if .Completed}}checked{{end}} onchange="this.form.submit()" aria-label="Toggle completion"/>
    </form>
    <span class="task-title">{{.Title}}</span>
    <div class="actions">
      <a class="button task-edit" href="{{.EditURL}}" title="Edit"><i class="fas fa-edit"></i></a>
      <a class="button task-delete" href="{{.DeleteURL}}" title="Delete"><i class="fas fa-trash"></i></a>
    </div>
  </div>
  {{if .DescriptionHTML}}<div class="task-description">{{.DescriptionHTML}}</div>{{end}}
  <div class="task-meta"><span class="task-due-date">{{.Due}}</span><span class="task-created-at">{{.Created}}</span></div>
</div>
{{end}}{{end}}
{{end}}`

const entryHTML = `
<div class="tabs">
{{range .Tabs}}<a href="/?tab={{.Name}}" class="button tab{{if .Active}} active{{end}}" data-tab="{{.Name}}">{{.Label}}</a>{{end}}
</div>
{{range .Tabs}}{{if .Active}}
<form method="post" action="/{{.Name}}" id="{{.Name}}-form" style="display:flex;flex-direction:column;gap:8px;max-width:360px">
  <input type="hidden" name="csrf_token" value="{{$.CSRF}}"/>
  <input type="email" name="email" placeholder="Email" required/>
  <input type="password" name="password" placeholder="Password" required/>
  <button type="submit" class="primary">{{.Label}}</button>
</form>
{{end}}{{end}}`

const dashboardHTML = `
<form method="post" action="/tasks" id="task-form">
  <input type="hidden" name="csrf_token" value="{{.CSRF}}"/>
  <input id="task-title" name="title" placeholder="What needs to be done?" value="{{.View.Form.Title}}"/>
  <textarea id="task-description" name="description" placeholder="Description (markdown supported)">{{.View.Form.Description}}</textarea>
  <input id="task-due-date" name="due_date" type="datetime-local" value="{{.View.Form.DueDate}}"/>
  <div>
    <button type="submit" class="primary">{{.View.Form.SubmitLabel}}</button>
    {{if .View.Form.Editing}}<button type="submit" formaction="/tasks/edit/cancel">Cancel</button>{{end}}
  </div>
</form>
<div class="toolbar">
  <div>
  {{range .Filters}}
    <form method="post" action="/tasks/filter" style="display:inline">
      <input type="hidden" name="csrf_token" value="{{$.CSRF}}"/>
      <button type="submit" name="filter" value="{{.Value}}" class="filter-btn{{if .Active}} active{{end}}" data-filter="{{.Value}}">{{.Label}}</button>
    </form>
  {{end}}
  </div>
  <form method="post" action="/tasks/sort">
    <input type="hidden" name="csrf_token" value="{{.CSRF}}"/>
    <select id="sort-select" name="sort" onchange="this.form.submit()">
    {{range .SortOptions}}<option value="{{.Value}}"{{if eq .Value $.SortValue}} selected{{end}}>{{.Label}}</option>{{end}}
    </select>
    <noscript><button type="submit">Sort</button></noscript>
  </form>
</div>
<div id="tasks-container">
{{template "tasklist" .}}
</div>`

const confirmDeleteHTML = `
<div class="task-card">
  <p>{{.Prompt}}</p>
  <p><strong>{{.Card.Title}}</strong></p>
  <form method="post" action="{{.Card.DeleteURL}}">
    <input type="hidden" name="csrf_token" value="{{.CSRF}}"/>
    <button type="submit" name="confirm" value="yes" class="primary">OK</button>
    <button type="submit" name="confirm" value="no">Cancel</button>
  </form>
</div>`

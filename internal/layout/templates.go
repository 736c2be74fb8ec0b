package layout

// shellTemplate is the frame every full page is rendered into. The client
// script swaps the content of <main> on in-app navigation.
const shellTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}" dir="{{.Dir}}" data-theme="{{.Theme}}">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="/static/app.css">
</head>
<body data-base="{{.Base}}" data-role="{{.Role}}">
  <nav class="sidebar" id="sidebar">
    <div class="sidebar-header">
      <a href="{{.Base}}/" data-nav class="brand">{{.AppName}}</a>
      <span class="role-badge">{{.RoleLabel}}</span>
      {{if .UserName}}<span class="user-name">{{.UserName}}</span>{{end}}
    </div>
    <ul class="menu" id="menu">
      {{range .Menu}}<li><a href="{{.Href}}" data-nav data-path="{{.Path}}"{{if .Active}} class="active"{{end}}>{{.Label}}</a></li>
      {{end}}
    </ul>
    {{if ne .Role "guest"}}<a href="{{.SwitchHref}}" data-nav class="switch-profile">{{.SwitchText}}</a>{{end}}
  </nav>
  <div class="content">
    <div class="top-bar">
      <form method="post" action="/api/preferences/theme" class="theme-form">
        <button type="submit" class="theme-toggle" aria-label="{{.ThemeLabel}}">{{.ThemeLabel}}</button>
      </form>
      <form method="post" action="/api/preferences/language" class="language-form">
        <select name="lang" data-autosubmit>
          {{range .Languages}}<option value="{{.Code}}"{{if .Selected}} selected{{end}}>{{.Name}}</option>
          {{end}}
        </select>
      </form>
    </div>
    <div class="toasts" id="toasts">
      {{with .Toast}}<div class="toast toast-{{.Level}}" role="status">{{.Message}}</div>{{end}}
    </div>
    <main id="app">{{.Content}}</main>
  </div>
  {{with .Cart}}<a href="{{$.CartHref}}" data-nav id="cart-widget" class="cart-widget"{{if not .Visible}} hidden{{end}}>
    <span class="cart-label">{{$.CartLabel}}</span>
    <span class="cart-count" id="cart-count">{{.Count}}</span>
    <span class="cart-total" id="cart-total">{{.Total}}</span>
  </a>{{end}}
  <script src="/static/app.js" data-ws="{{.WSPath}}"></script>
</body>
</html>`

// StyleSheet is served at /static/app.css
const StyleSheet = `:root {
  --bg: #ffffff;
  --bg-secondary: #f8f9fa;
  --text: #212529;
  --text-muted: #868e96;
  --border: #dee2e6;
  --accent: #1c7ed6;
  --danger: #e03131;
  --success: #2f9e44;
  --sidebar-width: 240px;
}
[data-theme="dark"] {
  --bg: #1a1b1e;
  --bg-secondary: #25262b;
  --text: #e9ecef;
  --text-muted: #909296;
  --border: #373a40;
  --accent: #4dabf7;
}
* { box-sizing: border-box; }
body { margin: 0; display: flex; font-family: system-ui, sans-serif; background: var(--bg); color: var(--text); }
a { color: var(--accent); }
.sidebar { width: var(--sidebar-width); min-height: 100vh; padding: 1rem; background: var(--bg-secondary); border-inline-end: 1px solid var(--border); }
.brand { font-weight: 700; font-size: 1.2rem; text-decoration: none; }
.role-badge { display: inline-block; margin-top: .5rem; padding: 0 .5rem; border-radius: 4px; background: var(--accent); color: #fff; font-size: .8rem; }
.menu { list-style: none; padding: 0; }
.menu a { display: block; padding: .4rem .6rem; border-radius: 4px; text-decoration: none; color: var(--text); }
.menu a.active { background: var(--accent); color: #fff; }
.content { flex: 1; padding: 1rem 2rem; }
.top-bar { display: flex; gap: .5rem; justify-content: flex-end; }
.toast { padding: .6rem 1rem; border-radius: 4px; margin: .5rem 0; }
.toast-success { background: var(--success); color: #fff; }
.toast-error { background: var(--danger); color: #fff; }
.toast-info, .toast-warning { background: var(--bg-secondary); border: 1px solid var(--border); }
.error-placeholder { padding: 2rem; border: 1px dashed var(--danger); border-radius: 6px; }
.empty-placeholder { padding: 2rem; color: var(--text-muted); }
table { width: 100%; border-collapse: collapse; }
th, td { padding: .4rem; border-bottom: 1px solid var(--border); text-align: start; }
.pagination { display: flex; gap: .5rem; margin-top: 1rem; }
.cart-widget { position: fixed; bottom: 1.5rem; inset-inline-end: 1.5rem; display: flex; gap: .5rem; padding: .8rem 1rem; border-radius: 2rem; background: var(--accent); color: #fff; text-decoration: none; }
.cart-widget[hidden] { display: none; }
`

// Script is served at /static/app.js. One delegated listener per event type on
// the document covers every swapped-in fragment.
const Script = `(function() {
  var base = document.body.getAttribute("data-base") || "";
  var main = document.getElementById("app");

  function markActive(path) {
    var links = document.querySelectorAll("#menu a[data-path]");
    for (var i = 0; i < links.length; i++) {
      var p = links[i].getAttribute("data-path");
      var on = p === "/" ? path === "/" : (path === p || path.indexOf(p + "/") === 0);
      links[i].classList.toggle("active", on);
    }
  }

  var toastMs = 4000;
  var position = history.state && typeof history.state.i === "number" ? history.state.i : 0;
  history.replaceState({ i: position }, "", window.location.href);

  function dismissToasts(root) {
    var toasts = root.querySelectorAll(".toast");
    for (var i = 0; i < toasts.length; i++) {
      (function(el) {
        setTimeout(function() { if (el.parentNode) el.parentNode.removeChild(el); }, toastMs);
      })(toasts[i]);
    }
  }

  // mode is "push" for in-app links, "traverse" for back/forward
  function load(url, mode, delta) {
    var headers = { "X-Fragment": "1" };
    if (mode) headers["X-Nav"] = mode;
    if (mode === "traverse") headers["X-Nav-Delta"] = String(delta);
    return fetch(url, { headers: headers, credentials: "same-origin" }).then(function(res) {
      if (res.status === 409) {
        // another tab of this session navigated meanwhile
        window.location.href = url;
        return;
      }
      return res.text().then(function(html) {
        main.innerHTML = html;
        dismissToasts(main);
        var title = res.headers.get("X-Page-Title");
        if (title) document.title = decodeURIComponent(title);
        var active = res.headers.get("X-Active-Path");
        if (active) markActive(active);
        if (mode === "push") {
          position++;
          history.pushState({ i: position }, "", url);
          window.scrollTo(0, 0);
        }
      });
    }).catch(function() {
      window.location.href = url;
    });
  }

  document.addEventListener("click", function(e) {
    var a = e.target.closest("a[data-nav]");
    if (!a || e.metaKey || e.ctrlKey || e.shiftKey) return;
    var href = a.getAttribute("href");
    if (!href || href.indexOf(base) !== 0) return;
    e.preventDefault();
    load(href, "push");
  });

  document.addEventListener("submit", function(e) {
    var form = e.target;
    if (!form.hasAttribute("data-nav-form")) return;
    e.preventDefault();
    var params = new URLSearchParams(new FormData(form));
    load(form.getAttribute("action") + "?" + params.toString(), "push");
  });

  document.addEventListener("change", function(e) {
    if (e.target.hasAttribute("data-autosubmit")) e.target.form.submit();
  });

  window.addEventListener("popstate", function(e) {
    var url = window.location.pathname + window.location.search;
    if (e.state && typeof e.state.i === "number") {
      var delta = e.state.i - position;
      position = e.state.i;
      load(url, "traverse", delta);
    } else {
      load(url, "", 0);
    }
  });

  dismissToasts(document);

  var widget = document.getElementById("cart-widget");
  var ws = document.currentScript && document.currentScript.getAttribute("data-ws");
  if (widget && ws && window.WebSocket) {
    var proto = window.location.protocol === "https:" ? "wss://" : "ws://";
    var sock = new WebSocket(proto + window.location.host + ws);
    sock.onmessage = function(msg) {
      var s = JSON.parse(msg.data);
      document.getElementById("cart-count").textContent = s.count;
      document.getElementById("cart-total").textContent = s.total;
      widget.hidden = !s.visible;
    };
  }
})();
`

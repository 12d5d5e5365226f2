package testutil

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ternarybob/gridcheck/internal/common"
)

const (
	consoleAdminPath    = "/admin-dev"
	consoleSessionName  = "console_session"
	consoleSessionValue = "authenticated"

	// ConsoleEmail and ConsolePassword are the fixture console credentials
	ConsoleEmail    = "demo@prestashop.com"
	ConsolePassword = "prestashop_demo"

	// ConsoleSuccessMessage is the flash message shown after a status toggle
	ConsoleSuccessMessage = "The status has been successfully updated."
)

// Tax is one record of the fixture taxes grid
type Tax struct {
	ID     int
	Name   string
	Rate   string
	Active bool
}

// DefaultTaxes returns twelve records; record 1 is the default French VAT rate
func DefaultTaxes() []Tax {
	return []Tax{
		{1, "TVA FR 20%", "20.000", true},
		{2, "TVA FR 10%", "10.000", true},
		{3, "TVA FR 5.5%", "5.500", true},
		{4, "TVA FR 2.1%", "2.100", true},
		{5, "USt. AT 20%", "20.000", true},
		{6, "TVA BE 21%", "21.000", false},
		{7, "ДДС BG 20%", "20.000", true},
		{8, "ΦΠΑ CY 19%", "19.000", false},
		{9, "DPH CZ 21%", "21.000", true},
		{10, "MwSt. DE 19%", "19.000", true},
		{11, "moms DK 25%", "25.000", false},
		{12, "IVA ES 21%", "21.000", true},
	}
}

type taxFilters struct {
	ID     string
	Name   string
	Rate   string
	Active string // "", "1" or "0"
}

func (f taxFilters) active() bool {
	return f.ID != "" || f.Name != "" || f.Rate != "" || f.Active != ""
}

func (f taxFilters) match(t Tax) bool {
	if f.ID != "" && strconv.Itoa(t.ID) != strings.TrimSpace(f.ID) {
		return false
	}
	if f.Name != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Rate != "" && !strings.Contains(t.Rate, f.Rate) {
		return false
	}
	if f.Active != "" && (f.Active == "1") != t.Active {
		return false
	}
	return true
}

// Console is an httptest server imitating an administrative console with a taxes grid.
// Filters are kept server-side and every mutation redirects, so each action reloads the page.
type Console struct {
	Server *httptest.Server

	mu           sync.Mutex
	taxes        []Tax
	filters      taxFilters
	flash        string
	requireLogin bool
	toggles      int
	brokenToggle bool
	stuckLoading bool
	searchGuard  bool
}

// NewConsole starts a fixture console and registers its shutdown with t
func NewConsole(t *testing.T) *Console {
	t.Helper()
	c := &Console{taxes: DefaultTaxes(), requireLogin: true}
	c.Server = httptest.NewServer(http.HandlerFunc(c.serve))
	t.Cleanup(c.Server.Close)
	return c
}

// URL returns the console base URL
func (c *Console) URL() string {
	return c.Server.URL
}

// Config returns a suite configuration targeting this console
func (c *Console) Config() *common.Config {
	config := common.NewDefaultConfig()
	config.Target.BaseURL = c.URL()
	config.Target.AdminPath = consoleAdminPath
	config.Auth.Email = ConsoleEmail
	config.Auth.Password = ConsolePassword
	config.Browser.NoSandbox = true
	config.Browser.RemoteURL = RemoteChromeURL()
	config.Settle.Timeout = "10s"
	config.Settle.NotificationTimeout = "3s"
	config.Reporting.Screenshots = false
	return config
}

// SetRequireLogin toggles the login redirect for grid pages
func (c *Console) SetRequireLogin(required bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requireLogin = required
}

// SetBrokenToggle makes the toggle endpoint report success without changing state
func (c *Console) SetBrokenToggle(broken bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.brokenToggle = broken
}

// SetStuckLoading renders a busy indicator on the grid page that never goes away
func (c *Console) SetStuckLoading(stuck bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stuckLoading = stuck
}

// SetSearchGuard renders the search button disabled until a filter input fires an input event
func (c *Console) SetSearchGuard(guarded bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchGuard = guarded
}

// SetActive sets the active flag of a tax directly
func (c *Console) SetActive(id int, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.taxes {
		if c.taxes[i].ID == id {
			c.taxes[i].Active = active
		}
	}
}

// Tax returns a copy of the record with the given id
func (c *Console) Tax(id int) (Tax, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.taxes {
		if t.ID == id {
			return t, true
		}
	}
	return Tax{}, false
}

// ToggleCount returns how many status toggles the console received
func (c *Console) ToggleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toggles
}

// FiltersActive reports whether any grid filter is stored
func (c *Console) FiltersActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters.active()
}

func (c *Console) adminURL(controller string, extra url.Values) string {
	q := url.Values{"controller": {controller}}
	for k, v := range extra {
		q[k] = v
	}
	return consoleAdminPath + "/index.php?" + q.Encode()
}

func (c *Console) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != consoleAdminPath+"/index.php" {
		http.NotFound(w, r)
		return
	}

	controller := r.URL.Query().Get("controller")
	if controller == "AdminLogin" {
		c.serveLogin(w, r)
		return
	}

	c.mu.Lock()
	requireLogin := c.requireLogin
	c.mu.Unlock()
	if requireLogin {
		if cookie, err := r.Cookie(consoleSessionName); err != nil || cookie.Value != consoleSessionValue {
			http.Redirect(w, r, c.adminURL("AdminLogin", nil), http.StatusFound)
			return
		}
	}

	switch controller {
	case "AdminDashboard":
		c.render(w, "Dashboard", dashboardBody, nil)
	case "AdminLocalization":
		c.render(w, "Localization", dashboardBody, nil)
	case "AdminTaxes":
		c.serveTaxes(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (c *Console) serveLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("email") == ConsoleEmail && r.PostForm.Get("passwd") == ConsolePassword {
			http.SetCookie(w, &http.Cookie{Name: consoleSessionName, Value: consoleSessionValue, Path: "/"})
			http.Redirect(w, r, c.adminURL("AdminDashboard", nil), http.StatusFound)
			return
		}
		c.render(w, "Login", loginBody, map[string]interface{}{"Error": "Invalid credentials"})
		return
	}
	c.render(w, "Login", loginBody, nil)
}

func (c *Console) serveTaxes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case r.Method == http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		c.filters = taxFilters{
			ID:     strings.TrimSpace(r.PostForm.Get("tax_id_tax")),
			Name:   strings.TrimSpace(r.PostForm.Get("tax_name")),
			Rate:   strings.TrimSpace(r.PostForm.Get("tax_rate")),
			Active: r.PostForm.Get("tax_active"),
		}
		c.mu.Unlock()
		http.Redirect(w, r, c.adminURL("AdminTaxes", nil), http.StatusFound)
		return

	case q.Get("reset") == "1":
		c.mu.Lock()
		c.filters = taxFilters{}
		c.mu.Unlock()
		http.Redirect(w, r, c.adminURL("AdminTaxes", nil), http.StatusFound)
		return

	case q.Get("toggle") != "":
		id, _ := strconv.Atoi(q.Get("toggle"))
		c.mu.Lock()
		c.toggles++
		if !c.brokenToggle {
			for i := range c.taxes {
				if c.taxes[i].ID == id {
					c.taxes[i].Active = !c.taxes[i].Active
				}
			}
		}
		c.flash = ConsoleSuccessMessage
		c.mu.Unlock()
		http.Redirect(w, r, c.adminURL("AdminTaxes", nil), http.StatusFound)
		return
	}

	c.mu.Lock()
	rows := make([]Tax, 0, len(c.taxes))
	for _, t := range c.taxes {
		if c.filters.match(t) {
			rows = append(rows, t)
		}
	}
	data := map[string]interface{}{
		"Rows":          rows,
		"Filters":       c.filters,
		"FiltersActive": c.filters.active(),
		"Flash":         c.flash,
		"Action":        c.adminURL("AdminTaxes", nil),
		"ResetURL":      c.adminURL("AdminTaxes", url.Values{"reset": {"1"}}),
		"Loading":       c.stuckLoading,
		"SearchGuard":   c.searchGuard,
	}
	c.flash = ""
	c.mu.Unlock()

	c.render(w, "Taxes", taxesBody, data)
}

func (c *Console) render(w http.ResponseWriter, title, body string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Title"] = title
	data["LoginURL"] = c.adminURL("AdminLogin", nil)
	data["LocalizationURL"] = c.adminURL("AdminLocalization", nil)
	data["TaxesURL"] = c.adminURL("AdminTaxes", nil)
	data["ToggleBase"] = c.adminURL("AdminTaxes", nil) + "&toggle="

	page := layout
	if body == loginBody {
		page = loginLayout
	}
	tmpl := template.Must(template.New("page").Parse(page))
	template.Must(tmpl.New("body").Parse(body))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

const layout = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}} • PrestaShop</title></head>
<body>
<nav class="nav-bar">
  <ul class="main-menu">
    <li id="subtab-AdminInternational" class="link-levelone"><a href="{{.LocalizationURL}}">International</a></li>
    <li id="subtab-AdminTaxes" class="link-leveltwo"><a href="{{.TaxesURL}}">Taxes</a></li>
  </ul>
</nav>
<div id="main">
  <div id="main-div">{{template "body" .}}</div>
</div>
</body></html>`

const loginLayout = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}} • PrestaShop</title></head>
<body><div id="login">{{template "body" .}}</div></body></html>`

const loginBody = `<h1 class="page-title">Login</h1>
{{if .Error}}<div class="alert alert-danger"><p class="alert-text">{{.Error}}</p></div>{{end}}
<form id="login_form" method="post" action="{{.LoginURL}}">
  <input id="email" name="email" type="email">
  <input id="passwd" name="passwd" type="password">
  <button id="submit_login" type="submit">Log in</button>
</form>`

const dashboardBody = `<h1 class="page-title">{{.Title}}</h1>`

const taxesBody = `<h1 class="page-title">Taxes</h1>
{{if .Flash}}<div class="alert alert-success"><p class="alert-text">{{.Flash}}</p></div>{{end}}
<div id="tax_grid_panel" class="card">
  <h3 class="card-header-title">Taxes ({{len .Rows}})</h3>
  {{if .Loading}}<div class="grid-loading">Loading...</div>{{end}}
  <div id="tax_grid">
    <form id="tax_filter_form" method="post" action="{{.Action}}">
    <table id="tax_grid_table" class="grid-table">
      <thead>
        <tr class="column-headers"><th>ID</th><th>Name</th><th>Rate</th><th>Enabled</th><th>Actions</th></tr>
        <tr class="column-filters">
          <td><input id="tax_id_tax" name="tax_id_tax" value="{{.Filters.ID}}"></td>
          <td><input id="tax_name" name="tax_name" value="{{.Filters.Name}}"></td>
          <td><input id="tax_rate" name="tax_rate" value="{{.Filters.Rate}}"></td>
          <td><select id="tax_active" name="tax_active">
            <option value="">--</option>
            <option value="1"{{if eq .Filters.Active "1"}} selected{{end}}>Yes</option>
            <option value="0"{{if eq .Filters.Active "0"}} selected{{end}}>No</option>
          </select></td>
          <td>
            <button type="submit" class="btn grid-search-button"{{if .SearchGuard}} disabled{{end}}>Search</button>
            {{if .FiltersActive}}<a class="btn grid-reset-button" href="{{.ResetURL}}">Reset</a>{{end}}
          </td>
        </tr>
      </thead>
      <tbody>
      {{range .Rows}}
        <tr>
          <td class="column-id_tax">{{.ID}}</td>
          <td class="column-name">{{.Name}}</td>
          <td class="column-rate">{{.Rate}}</td>
          <td class="column-active"><a class="ps-togglable-row" href="{{$.ToggleBase}}{{.ID}}">{{if .Active}}<i class="material-icons grid-toggler-icon-valid">check</i>{{else}}<i class="material-icons grid-toggler-icon-not-valid">clear</i>{{end}}</a></td>
          <td class="column-actions"><a href="#">Edit</a></td>
        </tr>
      {{else}}
        <tr class="empty_row"><td colspan="5">No records found</td></tr>
      {{end}}
      </tbody>
    </table>
    </form>
  </div>
</div>
{{if .SearchGuard}}<script>
document.querySelectorAll('#tax_grid .column-filters input').forEach(function (el) {
  el.addEventListener('input', function () {
    document.querySelector('#tax_grid .grid-search-button').disabled = false;
  });
});
</script>{{end}}`

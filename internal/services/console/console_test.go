package console

import (
	"context"
	"errors"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/session"
	"github.com/ternarybob/gridcheck/internal/testutil"
)

func newConsole(t *testing.T, config *common.Config) *Console {
	t.Helper()
	logger := arbor.NewLogger()
	manager := session.NewManager(config.Browser, logger)
	sess, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Release(sess) })
	return New(sess, config, logger)
}

func TestConsole_LoginAndNavigate(t *testing.T) {
	testutil.RequireChrome(t)
	fixture := testutil.NewConsole(t)
	config := fixture.Config()
	c := newConsole(t, config)
	ctx := context.Background()

	require.NoError(t, c.Login(ctx))

	title, err := c.GoToGrid(ctx, config.Navigation.ParentMenu, config.Navigation.ChildMenu)
	require.NoError(t, err)
	assert.Contains(t, title, config.Navigation.ExpectedTitle)

	var rows int
	require.NoError(t, chromedp.Run(c.session.Context(), chromedp.Evaluate(`document.querySelectorAll("#tax_grid tbody tr").length`, &rows)))
	assert.Equal(t, 12, rows)
}

func TestConsole_LoginRejected(t *testing.T) {
	testutil.RequireChrome(t)
	fixture := testutil.NewConsole(t)
	config := fixture.Config()
	config.Auth.Password = "wrong"
	config.Settle.Timeout = "2s"
	c := newConsole(t, config)

	err := c.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
}

func TestConsole_DirectGridPath(t *testing.T) {
	testutil.RequireChrome(t)
	fixture := testutil.NewConsole(t)
	fixture.SetRequireLogin(false)
	config := fixture.Config()
	config.Auth.Skip = true
	config.Navigation.GridPath = "/index.php?controller=AdminTaxes"
	c := newConsole(t, config)
	ctx := context.Background()

	require.NoError(t, c.Login(ctx))
	title, err := c.GoToGrid(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Taxes", title)
}

func TestConsole_MissingMenu(t *testing.T) {
	testutil.RequireChrome(t)
	fixture := testutil.NewConsole(t)
	fixture.SetRequireLogin(false)
	config := fixture.Config()
	config.Auth.Skip = true
	c := newConsole(t, config)
	ctx := context.Background()

	require.NoError(t, chromedp.Run(c.session.Context(), chromedp.Navigate(config.AdminURL("/index.php?controller=AdminDashboard"))))

	_, err := c.GoToGrid(ctx, "#subtab-AdminShipping", config.Navigation.ChildMenu)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrElementNotFound))
}

func TestScripts(t *testing.T) {
	assert.Contains(t, prepareClickScript(`#subtab-"x"`), `"#subtab-\"x\""`)
	assert.Contains(t, navigationStateScript(".page-title"), `"arrived"`)
	assert.Contains(t, titleScript(""), `var sel = "";`)
}

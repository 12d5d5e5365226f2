package interfaces

import "context"

// Authenticator signs the session into the administrative console
type Authenticator interface {
	Login(ctx context.Context) error
}

// Navigator reaches a grid page through the console's menu chrome
type Navigator interface {
	// GoToGrid opens childMenu under parentMenu and returns the page title
	GoToGrid(ctx context.Context, parentMenu, childMenu string) (string, error)
}

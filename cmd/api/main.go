package main

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/orderproxy/internal/app"
)

// main serves GET /orders without the CLI wrapper.
func main() {
	fx.New(app.Module).Run()
}

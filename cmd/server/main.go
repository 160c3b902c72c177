// Command server boots the dispatch and payment core as an HTTP service.
package main

import (
	"github.com/resqnow/dispatch-core/app"
)

func main() {
	app.NewFxApp().Run()
}

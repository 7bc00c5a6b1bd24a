package demo

import (
	"context"
	"runtime"

	"github.com/specialistvlad/vxgraph/internal/ctxlog"
	"github.com/specialistvlad/vxgraph/internal/version"
	"github.com/specialistvlad/vxgraph/internal/vx"
)

// Name is the application name shown in About.
const Name = "vxgraph"

// AboutInfo is the content of the about box.
type AboutInfo struct {
	Title   string `json:"title" yaml:"title"`
	Name    string `json:"name" yaml:"name"`
	Text    string `json:"text" yaml:"text"`
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
}

// About returns the application metadata.
func About() AboutInfo {
	return AboutInfo{
		Title:   "Copyright",
		Name:    Name,
		Text:    "Runs the xyz example kernel through a vision graph runtime.",
		Version: version.Version,
		Commit:  version.Commit,
	}
}

// OnCreate logs the host the controller runs on.
func (c *Controller) OnCreate(ctx context.Context) {
	ctxlog.FromContext(ctx).Debug("Controller created.",
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
		"go", runtime.Version(),
		"cpus", runtime.NumCPU(),
	)
}

// OnResume sets the graph up.
func (c *Controller) OnResume(ctx context.Context) bool {
	return c.SetupGraph(ctx)
}

// OnClick processes the graph once.
func (c *Controller) OnClick(ctx context.Context) vx.Status {
	return c.Execute(ctx)
}

// OnPause tears the graph down.
func (c *Controller) OnPause(ctx context.Context) bool {
	return c.TeardownGraph(ctx)
}

// OnStop ends the session. A controller still set up is torn down first.
func (c *Controller) OnStop(ctx context.Context) {
	if c.state == SetUp {
		c.TeardownGraph(ctx)
	}
	ctxlog.FromContext(ctx).Debug("Controller stopped.")
}

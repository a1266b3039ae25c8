package hotreload_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/gowade/loom/hotreload"
	"github.com/gowade/loom/markup"
	"github.com/gowade/loom/vdom"
)

type patchRecorder struct {
	patches chan *vdom.Template
}

func (r *patchRecorder) ApplyTemplatePatch(t *vdom.Template) {
	r.patches <- t
}

type HotReloadTestSuite struct {
	suite.Suite
}

func (s *HotReloadTestSuite) TestCompileAllSeedsExistingFiles() {
	dir := s.T().TempDir()
	s.write(dir, "card.html", `<div class="card">{0}</div>`)
	s.write(dir, "row.html", `<li>{0}</li>`)
	s.write(dir, "notes.txt", "not markup")

	rec := &patchRecorder{patches: make(chan *vdom.Template, 4)}
	w, err := hotreload.New(dir, "app.", rec)
	s.Require().NoError(err)

	s.Require().NoError(w.CompileAll())
	names := map[string]bool{}
	for i := 0; i < 2; i++ {
		t := <-rec.patches
		names[t.Name] = true
	}
	s.True(names["app.card"])
	s.True(names["app.row"])
	s.Len(rec.patches, 0)
}

func (s *HotReloadTestSuite) TestEditedFileProducesPatch() {
	dir := s.T().TempDir()
	s.write(dir, "card.html", `<div>{0}</div>`)

	rec := &patchRecorder{patches: make(chan *vdom.Template, 4)}
	w, err := hotreload.New(dir, "app.", rec)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watch a moment to become active before writing.
	time.Sleep(50 * time.Millisecond)
	s.write(dir, "card.html", `<div class="wide">{0}</div>`)

	select {
	case tpl := <-rec.patches:
		s.Equal(tpl.Name, "app.card")
		s.Equal(tpl.Roots[0].Attrs[0].Value, "wide")
	case <-time.After(5 * time.Second):
		s.Fail("no patch arrived for the edited file")
	}

	cancel()
	s.Equal(<-done, context.Canceled)
}

func (s *HotReloadTestSuite) TestBrokenMarkupKeepsWatcherAlive() {
	dir := s.T().TempDir()
	s.write(dir, "card.html", `<div>{0}</div>`)

	rec := &patchRecorder{patches: make(chan *vdom.Template, 4)}
	w, err := hotreload.New(dir, "app.", rec)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	s.write(dir, "card.html", `<div>{0}{0}</div>`)
	s.write(dir, "card.html", `<div>{0}{1}</div>`)

	// The duplicate-slot version is skipped; the fixed one lands.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case tpl := <-rec.patches:
			if len(tpl.NodePaths) == 2 {
				return
			}
		case <-deadline:
			s.Fail("watcher never recovered from the broken file")
			return
		}
	}
}

func (s *HotReloadTestSuite) TestPatchedTemplateReachesRuntime() {
	tpl, err := markup.CompileString("page", `<p>{0}</p>`)
	s.Require().NoError(err)

	d := vdom.New("page", func(c *vdom.Ctx) *vdom.VNode {
		return tpl.Render([]vdom.DynamicNode{vdom.Text("hi")}, nil)
	}, nil)
	defer d.Close()
	d.Rebuild(vdom.NewMutationList())

	dir := s.T().TempDir()
	s.write(dir, "page.html", `<h1>{0}</h1>`)

	w, err := hotreload.New(dir, "", d)
	s.Require().NoError(err)
	s.Require().NoError(w.CompileAll())

	s.Require().NoError(d.WaitForWork(context.Background()))
	ml := vdom.NewMutationList()
	d.RenderImmediate(ml)
	s.Require().NotZero(ml.Len())
	s.Equal(ml.Edits[0].Op, vdom.OpRegisterTemplate)
}

func (s *HotReloadTestSuite) write(dir, name, content string) string {
	path := filepath.Join(dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHotReload(t *testing.T) {
	suite.Run(t, new(HotReloadTestSuite))
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gowade/loom/hotreload"
	"github.com/gowade/loom/markup"
	"github.com/gowade/loom/remote"
	"github.com/gowade/loom/vdom"
)

func serveCmd() *cobra.Command {
	var (
		addr string
		dir  string
		root string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live template sessions over a websocket, with hot reload",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, dir, root)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&dir, "dir", ".", "directory of markup files to serve and watch")
	cmd.Flags().StringVar(&root, "root", "index", "markup file (without extension) mounted as the page root")
	return cmd
}

// patchHub fans template patches out to every live session's runtime.
type patchHub struct {
	mu      sync.Mutex
	targets []*vdom.Dom
}

func (h *patchHub) add(d *vdom.Dom) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.targets = append(h.targets, d)
}

func (h *patchHub) remove(d *vdom.Dom) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, t := range h.targets {
		if t == d {
			h.targets = append(h.targets[:i], h.targets[i+1:]...)
			return
		}
	}
}

func (h *patchHub) ApplyTemplatePatch(t *vdom.Template) {
	h.mu.Lock()
	targets := append([]*vdom.Dom(nil), h.targets...)
	h.mu.Unlock()
	for _, d := range targets {
		if !d.TryApplyTemplatePatch(t) {
			glog.Warningf("session dropped template patch %q", t.Name)
		}
	}
}

func serve(ctx context.Context, addr, dir, root string) error {
	rootPath := filepath.Join(dir, root+".html")
	if _, err := compileFile(rootPath, root); err != nil {
		return errors.Wrapf(err, "compiling root template %s", rootPath)
	}

	hub := &patchHub{}
	watcher, err := hotreload.New(dir, "", hub)
	if err != nil {
		return err
	}
	go func() {
		if err := watcher.Run(ctx); err != nil && err != context.Canceled {
			glog.Errorf("watcher: %v", err)
		}
	}()

	newApp := func() *vdom.Dom {
		tpl, err := compileFile(rootPath, root)
		if err != nil {
			glog.Errorf("session starting with broken root template: %v", err)
			tpl, _ = markup.CompileString(root, "<pre>template failed to compile, check the server log</pre>")
		}
		d := vdom.New(root, func(c *vdom.Ctx) *vdom.VNode {
			nodes := make([]vdom.DynamicNode, len(tpl.NodePaths))
			for i := range nodes {
				nodes[i] = &vdom.VPlaceholder{}
			}
			attrs := make([][]vdom.Attribute, len(tpl.AttrPaths))
			return tpl.Render(nodes, attrs)
		}, nil)
		hub.add(d)
		return d
	}

	ws := remote.NewServer(newApp)
	ws.OnSessionEnd(hub.remove)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	glog.Infof("serving %s on %s (websocket at /ws)", rootPath, addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server")
	}
	return nil
}

func compileFile(path, name string) (*vdom.Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return markup.Compile(name, f)
}

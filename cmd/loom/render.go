package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gowade/loom/dom/memdom"
	"github.com/gowade/loom/markup"
	"github.com/gowade/loom/vdom"
)

func renderCmd() *cobra.Command {
	var (
		name string
		sets []string
	)

	cmd := &cobra.Command{
		Use:   "render <markup-file>",
		Short: "Compile a markup file and print its rendered HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "opening markup file")
			}
			defer f.Close()

			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			tpl, err := markup.Compile(name, f)
			if err != nil {
				return err
			}
			values, err := parseSlotValues(sets)
			if err != nil {
				return err
			}

			html, err := renderTemplate(tpl, values)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), html)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "template name (default: file name without extension)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "fill a dynamic node slot, as N=text")
	return cmd
}

func parseSlotValues(sets []string) (map[int]string, error) {
	values := map[int]string{}
	for _, s := range sets {
		eq := strings.IndexByte(s, '=')
		if eq < 1 {
			return nil, errors.Errorf("bad --set %q, want N=text", s)
		}
		idx, err := strconv.Atoi(s[:eq])
		if err != nil {
			return nil, errors.Errorf("bad --set slot index in %q", s)
		}
		values[idx] = s[eq+1:]
	}
	return values, nil
}

func renderTemplate(tpl *vdom.Template, values map[int]string) (string, error) {
	component := func(c *vdom.Ctx) *vdom.VNode {
		nodes := make([]vdom.DynamicNode, len(tpl.NodePaths))
		for i := range nodes {
			nodes[i] = vdom.Text(values[i])
		}
		attrs := make([][]vdom.Attribute, len(tpl.AttrPaths))
		return tpl.Render(nodes, attrs)
	}

	d := vdom.New(tpl.Name, component, nil)
	defer d.Close()
	doc := memdom.New()

	batch := vdom.NewMutationList()
	d.Rebuild(batch)
	if err := doc.Apply(batch); err != nil {
		return "", errors.Wrap(err, "rendering")
	}
	return doc.HTML(), nil
}

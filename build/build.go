package build

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/b1naryth1ef/fractals"
	"github.com/b1naryth1ef/fractals/web"
)

type BuildOpts struct {
	ForceClean bool
}

const metaFileName = "build.json"

func ensureDirectory(path string) error {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModePerm)
	}
	return err
}

func writeDirectory(dst string, fs embed.FS, dir string) error {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			err = os.Mkdir(filepath.Join(dst, entry.Name()), os.ModePerm)
			if err != nil && !os.IsExist(err) {
				return err
			}
			err = writeDirectory(filepath.Join(dst, entry.Name()), fs, path.Join(dir, entry.Name()))
			if err != nil {
				return err
			}
		} else {
			contents, err := fs.ReadFile(path.Join(dir, entry.Name()))
			if err != nil {
				return err
			}

			err = os.WriteFile(filepath.Join(dst, entry.Name()), contents, 0o644)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func writeStatic(dst string, data web.FrontendData) error {
	fd, err := os.Create(filepath.Join(dst, "index.html"))
	if err != nil {
		return err
	}
	defer fd.Close()

	dataSerialized, err := json.Marshal(data)
	if err != nil {
		return err
	}

	err = web.WriteIndex(fd, string(dataSerialized))
	if err != nil {
		return err
	}

	err = ensureDirectory(filepath.Join(dst, "static"))
	if err != nil {
		return err
	}

	return writeDirectory(filepath.Join(dst, "static"), web.GetStaticContent(), ".")
}

func writePNG(path string, img image.Image) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(fd, img); err != nil {
		fd.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return fd.Close()
}

func loadMeta(dir string) (*fractals.RenderMeta, error) {
	meta := &fractals.RenderMeta{Views: map[string]string{}}

	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if os.IsNotExist(err) {
		return meta, nil
	}
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(data, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Join(dir, metaFileName), err)
	}
	if meta.Views == nil {
		meta.Views = map[string]string{}
	}
	return meta, nil
}

func writeMeta(dir string, meta *fractals.RenderMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, metaFileName), data, 0o644)
}

// fingerprint identifies everything that changes the pixels of a view.
func fingerprint(args fractals.RenderArgs, opts fractals.RenderOpts, thumbnail int) string {
	return fmt.Sprintf("%s, normalize: %s, batch: %d, thumbnail: %d", args, opts.Normalize, opts.BatchSize, thumbnail)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func buildView(ctx context.Context, config *fractals.Config, opts BuildOpts, view *fractals.ViewConfigBlock, outputPath string, meta *fractals.RenderMeta) (*web.ViewData, error) {
	args, err := view.Args()
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", view.Name, err)
	}
	renderOpts := view.RenderOpts(config)

	imageName := view.Name + ".png"
	viewData := web.ViewData{
		Name:          view.Name,
		Image:         imageName,
		Width:         int(args.Width),
		Height:        int(args.Height),
		MaxIterations: int(args.MaxIterations),
		Viewport:      fmt.Sprintf("%s .. %s", args.Start, args.End),
	}
	thumbName := ""
	if view.Thumbnail > 0 {
		thumbName = view.Name + ".thumb.png"
		viewData.Thumbnail = thumbName
	}

	fp := fingerprint(args, renderOpts, view.Thumbnail)
	if !opts.ForceClean && meta.Views[view.Name] == fp && fileExists(filepath.Join(outputPath, imageName)) {
		log.Printf("[build] %s is unchanged, skipping", view.Name)
		return &viewData, nil
	}

	result, err := fractals.NewRenderer(renderOpts).Render(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("failed to render view %q: %w", view.Name, err)
	}

	err = writePNG(filepath.Join(outputPath, imageName), result.Image)
	if err != nil {
		return nil, err
	}

	if thumbName != "" {
		err = writePNG(filepath.Join(outputPath, thumbName), fractals.Scale(result.Image, view.Thumbnail))
		if err != nil {
			return nil, err
		}
	}

	meta.Views[view.Name] = fp

	log.Printf("Finished rendering %s in %dms (%d chunks, %d members)", view.Name, result.Elapsed.Milliseconds(), result.Chunks, result.Members)
	return &viewData, nil
}

// Build renders every view with an output and writes the gallery for outputs
// that include static content.
func Build(ctx context.Context, config *fractals.Config, opts BuildOpts) error {
	outputs := map[string]*fractals.OutputConfigBlock{}
	metas := map[string]*fractals.RenderMeta{}
	for _, output := range config.Outputs {
		err := ensureDirectory(output.Path)
		if err != nil {
			return err
		}

		meta, err := loadMeta(output.Path)
		if err != nil {
			return err
		}

		outputs[output.Name] = output
		metas[output.Name] = meta
	}

	views := map[string][]web.ViewData{}
	for _, view := range config.Views {
		if view.Output == "" {
			log.Printf("[build] view %s has no output, skipping", view.Name)
			continue
		}

		output, ok := outputs[view.Output]
		if !ok {
			return fmt.Errorf("view %q: unknown output %q", view.Name, view.Output)
		}

		viewData, err := buildView(ctx, config, opts, view, output.Path, metas[output.Name])
		if err != nil {
			return err
		}
		views[output.Name] = append(views[output.Name], *viewData)
	}

	background := config.Background()
	for _, output := range config.Outputs {
		err := writeMeta(output.Path, metas[output.Name])
		if err != nil {
			return err
		}

		if output.IncludeStatic {
			err := writeStatic(output.Path, web.FrontendData{
				Background: fractals.HexColor(background),
				Accent:     fractals.HexColor(fractals.AccentColor(background)),
				Views:      append([]web.ViewData{}, views[output.Name]...),
			})
			if err != nil {
				return err
			}
		}
	}

	return nil
}

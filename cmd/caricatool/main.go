// Command caricatool runs the image pipeline locally: crop and grayscale
// files, send one photo through the configured provider, or walk the whole
// wizard and save every step.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"caricagen/internal/domain"
	"caricagen/internal/generate"
	"caricagen/internal/imageproc"
	"caricagen/internal/infra"
	"caricagen/internal/prompt"
	provider "caricagen/internal/providers/image"
	"caricagen/internal/storage"
	"caricagen/internal/wizard"
	"caricagen/pkg/zip"
)

const usage = `usage: caricatool <command> [flags]

commands:
  crop       center-crop an image to an aspect ratio
  gray       convert an image to grayscale
  transform  send one image through the configured provider
  wizard     run style, facial and body steps and save every image`

func main() {
	if len(os.Args) < 2 {
		exitWithError(errors.New(usage))
	}
	_ = godotenv.Load()

	var err error
	switch os.Args[1] {
	case "crop":
		err = runCrop(os.Args[2:])
	case "gray":
		err = runGray(os.Args[2:])
	case "transform":
		err = runTransform(os.Args[2:])
	case "wizard":
		err = runWizard(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		err = fmt.Errorf("unknown command %q\n\n%s", os.Args[1], usage)
	}
	if err != nil {
		exitWithError(err)
	}
}

func runCrop(args []string) error {
	fs := flag.NewFlagSet("crop", flag.ExitOnError)
	in := fs.String("in", "", "input image path")
	out := fs.String("out", "cropped.png", "output image path")
	ratio := fs.String("ratio", "1:1", "aspect ratio W:H or Original")
	base := fs.Int("base", imageproc.DefaultCropOptions.Base, "short side of the output box")
	multiple := fs.Int("multiple", imageproc.DefaultCropOptions.Multiple, "round output sides down to this multiple")
	_ = fs.Parse(args)

	if _, err := imageproc.ParseRatio(*ratio); err != nil {
		return err
	}
	src, err := readInput(*in)
	if err != nil {
		return err
	}
	return writeOutput(*out, imageproc.CropDataURI(src, *ratio, imageproc.CropOptions{Base: *base, Multiple: *multiple}))
}

func runGray(args []string) error {
	fs := flag.NewFlagSet("gray", flag.ExitOnError)
	in := fs.String("in", "", "input image path")
	out := fs.String("out", "gray.png", "output image path")
	_ = fs.Parse(args)

	src, err := readInput(*in)
	if err != nil {
		return err
	}
	return writeOutput(*out, imageproc.GrayscaleDataURI(src))
}

func runTransform(args []string) error {
	fs := flag.NewFlagSet("transform", flag.ExitOnError)
	in := fs.String("in", "", "input image path")
	out := fs.String("out", "result.png", "output image path")
	style := fs.String("style", string(domain.StyleCartoon2D), "style preset")
	text := fs.String("prompt", "", "extra prompt text")
	exaggeration := fs.Int("exaggeration", -1, "exaggeration 0-100, negative to omit")
	body := fs.Bool("body", false, "full body composition")
	timeout := fs.Duration("timeout", 3*time.Minute, "overall timeout")
	_ = fs.Parse(args)

	src, err := readInput(*in)
	if err != nil {
		return err
	}
	svc, logger, err := newService()
	if err != nil {
		return err
	}
	req := generate.Request{Image: src, Style: *style, Prompt: *text, BodyMode: *body}
	if *exaggeration >= 0 {
		req.Exaggeration = exaggeration
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	resp, err := svc.Generate(ctx, req)
	if err != nil {
		return err
	}
	logger.Info().Str("provider", resp.Provider).Str("prompt", resp.Prompt).Msg("transform done")
	return writeOutput(*out, resp.Output)
}

func runWizard(args []string) error {
	fs := flag.NewFlagSet("wizard", flag.ExitOnError)
	in := fs.String("in", "", "input photo path")
	outDir := fs.String("out", "caricatura", "output directory")
	style := fs.String("style", string(domain.StyleCartoon2D), "style preset")
	ratio := fs.String("ratio", "1:1", "aspect ratio W:H or Original")
	facial := fs.String("facial", "", "facial edit prompt")
	facialLevel := fs.Int("facial-exaggeration", 20, "facial exaggeration 0-100")
	bodyText := fs.String("body", "", "body edit prompt; empty skips the body step")
	bodyLevel := fs.Int("body-exaggeration", 20, "body exaggeration 0-100")
	timeout := fs.Duration("timeout", 10*time.Minute, "overall timeout")
	_ = fs.Parse(args)

	src, err := readInput(*in)
	if err != nil {
		return err
	}
	svc, logger, err := newService()
	if err != nil {
		return err
	}
	engine := wizard.NewEngine(wizard.EngineOptions{Generator: svc, Logger: &logger})
	sess := engine.NewSession()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if _, err := sess.Start(ctx, wizard.StartInput{Style: *style, Photo: src, Ratio: *ratio}); err != nil {
		return err
	}
	if strings.TrimSpace(*facial) != "" {
		if _, ok, err := sess.UpdateFacial(ctx, *facialLevel, *facial); err != nil {
			return err
		} else if !ok {
			logger.Warn().Msg("facial update failed, keeping first result")
		}
	}
	if _, err := sess.NextToBody(); err != nil {
		return err
	}
	if strings.TrimSpace(*bodyText) != "" {
		if _, ok, err := sess.UpdateBody(ctx, *bodyLevel, *bodyText); err != nil {
			return err
		} else if !ok {
			logger.Warn().Msg("body update failed")
		}
	}

	store, err := storage.NewFileStore(*outDir)
	if err != nil {
		return err
	}
	var assets []zip.Asset
	for name, uri := range sess.Images() {
		path, err := store.WriteDataURI(ctx, name, uri)
		if err != nil {
			return err
		}
		parsed, _ := imageproc.ParseDataURI(uri)
		assets = append(assets, zip.Asset{Filename: filepath.Base(path), MIME: parsed.MIME, Data: parsed.Data})
		logger.Info().Str("slot", name).Str("path", path).Msg("saved")
	}
	archive, err := zip.ArchiveAssets(assets, time.Now())
	if err != nil {
		return err
	}
	path, err := store.Write(ctx, "caricatura.zip", archive)
	if err != nil {
		return err
	}
	logger.Info().Str("path", path).Msg("archive written")
	return nil
}

func newService() (*generate.Service, infra.Logger, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, infra.Logger{}, err
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "caricatool").Logger()
	templates, err := prompt.LoadTemplates(cfg.StyleTemplatesPath)
	if err != nil {
		return nil, logger, err
	}
	transformer, err := provider.NewFromConfig(provider.Deps{Config: cfg, Logger: &logger})
	if err != nil {
		return nil, logger, err
	}
	return generate.NewService(generate.Options{Transformer: transformer, Templates: templates, Logger: &logger}), logger, nil
}

func readInput(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("-in is required")
	}
	return storage.ReadDataURI(path)
}

func writeOutput(path, uri string) error {
	if !imageproc.IsDataURI(uri) {
		// URL-only provider result
		fmt.Println(uri)
		return nil
	}
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	store, err := storage.NewFileStore(dir)
	if err != nil {
		return err
	}
	written, err := store.WriteDataURI(context.Background(), name, uri)
	if err != nil {
		return err
	}
	fmt.Println(written)
	return nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

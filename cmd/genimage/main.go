package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	cfgPkg "github.com/docuplot/docuplot/pkg/config"
	"github.com/docuplot/docuplot/pkg/imagegen"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath string
		prompt     string
		outDir     string
		prefix     string
		count      int
		width      int
		height     int
		cfgScale   float64
		seed       int64
		quality    string
	)

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&prompt, "prompt", "", "Text prompt for the image")
	flag.StringVar(&outDir, "out", "renders", "Directory for generated images")
	flag.StringVar(&prefix, "prefix", "image", "File name prefix for saved images")
	flag.IntVar(&count, "count", 1, "Number of images (1-5)")
	flag.IntVar(&width, "width", 1024, "Image width in pixels")
	flag.IntVar(&height, "height", 1024, "Image height in pixels")
	flag.Float64Var(&cfgScale, "cfg-scale", imagegen.DefaultCfgScale, "Prompt adherence scale")
	flag.Int64Var(&seed, "seed", 0, "Generation seed")
	flag.StringVar(&quality, "quality", imagegen.QualityStandard, "Quality tier: standard or premium")
	flag.Parse()

	if err := run(configPath, prompt, outDir, prefix, imagegen.GenerationConfig{
		NumberOfImages: count,
		Width:          width,
		Height:         height,
		CfgScale:       cfgScale,
		Seed:           seed,
		Quality:        quality,
	}); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, prompt, outDir, prefix string, genCfg imagegen.GenerationConfig) error {
	if prompt == "" {
		return fmt.Errorf("a -prompt is required")
	}

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.ImageGen.Endpoint == "" {
		return fmt.Errorf("imagegen.endpoint is not configured (set IMAGEGEN_ENDPOINT or the config file)")
	}

	client := imagegen.NewClient(
		cfg.ImageGen.Endpoint,
		cfg.ImageGen.APIKey,
		time.Duration(cfg.ImageGen.TimeoutSeconds)*time.Second)

	images, err := client.Generate(context.Background(), prompt, genCfg)
	if err != nil {
		return err
	}

	paths, err := imagegen.SaveImages(outDir, prefix, images)
	if err != nil {
		return err
	}

	for _, p := range paths {
		color.Green("✓ %s\n", p)
	}
	return nil
}

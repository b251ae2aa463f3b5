// Command spvrun compiles a shader and runs it on the software shader core.
//
// Usage:
//
//	spvrun [options] <input.spv>
//	spvrun -dis <input.spv | input.wgsl>
//	spvrun [options] -demo <name>
//
// Examples:
//
//	spvrun -dis shader.spv                   # Disassemble
//	spvrun -dis shader.wgsl                  # Disassemble naga's SPIR-V
//	spvrun -il shader.spv                    # Print the lowered IL
//	spvrun -vertices 6 shader.spv            # Run six vertex invocations
//	spvrun -o out.png -scale 4 -demo checker # Shade a fragment image
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"golang.org/x/image/draw"

	"github.com/szx/vkswr"
	"github.com/szx/vkswr/il"
	"github.com/szx/vkswr/internal/shaders"
	"github.com/szx/vkswr/spirv"
)

var (
	output   = flag.String("o", "", "PNG output file for fragment shaders")
	dis      = flag.Bool("dis", false, "print the disassembly and exit")
	printIL  = flag.Bool("il", false, "print the lowered IL and exit")
	vertices = flag.Int("vertices", 3, "number of vertex invocations")
	width    = flag.Int("width", 64, "fragment image width")
	height   = flag.Int("height", 64, "fragment image height")
	scale    = flag.Int("scale", 1, "nearest-neighbour upscale factor of the PNG")
	workers  = flag.Int("workers", 0, "invocation workers (default: GOMAXPROCS)")
	demo     = flag.String("demo", "", "run a built-in shader: "+strings.Join(shaders.Names(), ", "))
	verbose  = flag.Bool("v", false, "log debug output to stderr")
	validate = flag.Bool("validate", true, "validate the lowered IL (and the naga IR of .wgsl inputs)")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *verbose {
		vkswr.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	name, words, err := load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		usage()
		os.Exit(1)
	}

	if *dis {
		text, err := spirv.Disassemble(words)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Disassembly error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(text)
		return
	}

	shader, err := vkswr.Compile(name, words, vkswr.WithWorkers(workerCount()), vkswr.WithValidation(*validate))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation error: %v\n", err)
		os.Exit(1)
	}

	if *printIL {
		fmt.Print(il.Format(shader.IL()))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch shader.Stage() {
	case gputypes.ShaderStageVertex:
		err = runVertices(ctx, shader)
	case gputypes.ShaderStageFragment:
		err = runFragments(ctx, shader)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Execution error: %v\n", err)
		os.Exit(1)
	}
}

// load returns the shader words from -demo or the input file.
func load() (string, []uint32, error) {
	if *demo != "" {
		build, ok := shaders.Demos[*demo]
		if !ok {
			return "", nil, fmt.Errorf("unknown demo %q", *demo)
		}
		return *demo, build(), nil
	}

	args := flag.Args()
	if len(args) < 1 {
		return "", nil, fmt.Errorf("no input file specified")
	}
	return loadFile(args[0], *dis)
}

// loadFile reads a SPIR-V binary, or a WGSL source when path ends in
// .wgsl. naga passes entry-point inputs and results as function
// parameters and return values, which the shader core does not execute,
// so WGSL inputs are only accepted for disassembly.
func loadFile(path string, disassemble bool) (string, []uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading file: %w", err)
	}

	if filepath.Ext(path) == ".wgsl" {
		if !disassemble {
			return "", nil, fmt.Errorf("%s: WGSL inputs can only be disassembled (use -dis)", path)
		}
		words, err := wgslWords(string(data), *validate)
		if err != nil {
			return "", nil, fmt.Errorf("compiling %s: %w", path, err)
		}
		return filepath.Base(path), words, nil
	}

	words, err := spirv.WordsFromBytes(data)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(path), words, nil
}

// wgslWords compiles WGSL source to SPIR-V words with naga.
func wgslWords(source string, validate bool) ([]uint32, error) {
	opts := naga.DefaultOptions()
	opts.Validate = validate
	data, err := naga.CompileWithOptions(source, opts)
	if err != nil {
		return nil, err
	}
	return spirv.WordsFromBytes(data)
}

func workerCount() int {
	if *workers > 0 {
		return *workers
	}
	return runtime.GOMAXPROCS(0)
}

func runVertices(ctx context.Context, shader *vkswr.Shader) error {
	in := make([]vkswr.Vertex, *vertices)
	for i := range in {
		in[i] = vkswr.Vertex{
			Position:  [4]float32{float32(i), float32(i) * 0.5, float32(i) * 0.25, 1},
			PointSize: 1,
			Index:     uint32(i),
		}
	}

	out, err := vkswr.ExecuteVertex(ctx, shader, vkswr.VertexInputState{}, in)
	for i, v := range out {
		fmt.Printf("vertex %d: position=%v point_size=%v clip=%v\n", i, v.Position, v.PointSize, v.ClipDistances)
		for _, loc := range slices.Sorted(maps.Keys(v.Varyings)) {
			fmt.Printf("  location %d: %v\n", loc, v.Varyings[loc])
		}
	}
	return err
}

func runFragments(ctx context.Context, shader *vkswr.Shader) error {
	w, h := *width, *height
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid image size %dx%d", w, h)
	}

	in := make([]vkswr.Fragment, w*h)
	for i := range in {
		x, y := i%w, i/w
		in[i] = vkswr.Fragment{
			Position: [4]float32{float32(x) + 0.5, float32(y) + 0.5, 0, 1},
			Color:    [4]float32{float32(x) / float32(w), float32(y) / float32(h), 0.5, 1},
		}
	}

	out, err := vkswr.ExecuteFragment(ctx, shader, in)
	if err != nil {
		return err
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	discarded := 0
	for i, f := range out {
		if f.Discarded {
			discarded++
			continue
		}
		img.SetNRGBA(i%w, i/w, f.Pixel())
	}
	fmt.Printf("shaded %d fragments, %d discarded\n", len(out), discarded)

	if *output == "" {
		return nil
	}
	return writePNG(*output, img, *scale)
}

func writePNG(path string, img *image.NRGBA, factor int) error {
	var dst image.Image = img
	if factor > 1 {
		b := img.Bounds()
		scaled := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
		dst = scaled
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, dst); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: spvrun [options] <input.spv>\n")
	fmt.Fprintf(os.Stderr, "       spvrun -dis <input.spv | input.wgsl>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  spvrun -dis shader.spv                    Disassemble\n")
	fmt.Fprintf(os.Stderr, "  spvrun -il shader.spv                     Print the lowered IL\n")
	fmt.Fprintf(os.Stderr, "  spvrun -vertices 6 shader.spv             Run six vertices\n")
	fmt.Fprintf(os.Stderr, "  spvrun -o out.png -scale 4 -demo checker  Shade an image\n")
}

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/menta2k/pixuli/internal/utils"
	"github.com/menta2k/pixuli/pkg/types"
)

var (
	convertOutDir    string
	convertFormat    string
	convertQuality   int
	convertWidth     int
	convertHeight    int
	convertMaxDim    int
	convertStretch   bool
	convertLossless  bool
	convertFlatten   bool
	convertSuffix    string
	convertRecursive bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <image|url|dir>...",
	Short: "Convert images to another format, optionally resizing",
	Long: `Converts every input with the same settings and writes
<out>/<name><suffix>.<ext>. The batch is all-or-nothing: if any input fails,
nothing is written.

Resizing keeps the aspect ratio unless --stretch is set. With only --width
or --height the other side follows the original ratio; with both the image
is fitted inside the box. Without either, --max-dimension (or
conversion.max_dimension) caps the longest side.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutDir, "out", "o", "./pixuli_out", "output directory")
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "", "target format: jpeg|png|webp|gif|bmp|tiff (default from config)")
	convertCmd.Flags().IntVarP(&convertQuality, "quality", "q", 0, "quality 1-100 (0 = config default)")
	convertCmd.Flags().IntVar(&convertWidth, "width", 0, "target width in pixels")
	convertCmd.Flags().IntVar(&convertHeight, "height", 0, "target height in pixels")
	convertCmd.Flags().IntVar(&convertMaxDim, "max-dimension", 0, "cap the longest side when no width or height is given (0 = config default)")
	convertCmd.Flags().BoolVar(&convertStretch, "stretch", false, "ignore aspect ratio when resizing")
	convertCmd.Flags().BoolVar(&convertLossless, "lossless", false, "lossless encoding where supported")
	convertCmd.Flags().BoolVar(&convertFlatten, "flatten", false, "drop transparency onto white")
	convertCmd.Flags().StringVar(&convertSuffix, "suffix", "", "suffix appended to output names")
	convertCmd.Flags().BoolVarP(&convertRecursive, "recursive", "r", false, "descend into subdirectories")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := newPixuli(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	req := cfg.ConversionRequest()
	if convertFormat != "" {
		f, ok := types.ParseFormat(convertFormat)
		if !ok {
			return fmt.Errorf("unsupported format %q (supported: %v)", convertFormat, types.AllFormats())
		}
		req.TargetFormat = f
	}
	if convertQuality != 0 {
		req.Quality = convertQuality
	}
	if cmd.Flags().Changed("lossless") {
		req.Lossless = convertLossless
	}
	if convertMaxDim != 0 {
		req.MaxDimension = convertMaxDim
	}
	if convertFlatten {
		req.PreserveTransparency = false
	}
	if convertWidth != 0 || convertHeight != 0 {
		req.Resize = types.NewResize(convertWidth, convertHeight, !convertStretch)
	}

	sources, err := expandInputs(args, convertRecursive)
	if err != nil {
		return err
	}
	inputs := make([][]byte, len(sources))
	for i, src := range sources {
		if inputs[i], err = p.ReadSource(src); err != nil {
			return fmt.Errorf("read %s: %w", src, err)
		}
	}

	results, err := p.BatchConvert(inputs, req)
	if err != nil {
		return err
	}

	if err := utils.EnsureDir(convertOutDir); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	var inBytes, outBytes int64
	for i, r := range results {
		path := utils.OutputPath(sources[i], convertOutDir, convertSuffix, r.Format)
		if err := os.WriteFile(path, r.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		inBytes += int64(r.OriginalSize)
		outBytes += int64(r.ConvertedSize)

		note := ""
		if r.SubstitutedCodec {
			note = " (substituted codec)"
		}
		fmt.Printf("  %s  %dx%d -> %dx%d  %s -> %s%s\n",
			path, r.OriginalWidth, r.OriginalHeight, r.Width, r.Height,
			utils.FormatFileSize(int64(r.OriginalSize)), utils.FormatFileSize(int64(r.ConvertedSize)), note)
	}

	ratio := 0.0
	if inBytes > 0 {
		ratio = float64(outBytes) / float64(inBytes) * 100
	}
	fmt.Printf("\n%d images, %s -> %s (%.1f%%) in %s\n",
		len(results), utils.FormatFileSize(inBytes), utils.FormatFileSize(outBytes), ratio,
		time.Since(start).Round(time.Millisecond))
	return nil
}

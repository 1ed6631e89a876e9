package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <image>",
	Short: "Detect faces in an image and match them against the reference database",
	Long: `Detect every face in an image, save the crops to the output folder and look
each face up in the reference database.

A face matches when the closest reference image is within the distance threshold.

Examples:
  # Match with the defaults (retinaface + ArcFace, threshold 0.5)
  face-matcher match group.jpg

  # Stricter matching against another database
  face-matcher match group.jpg --db ~/faces --threshold 0.35

  # Machine-readable output
  face-matcher match group.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
	addMatchFlags(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	return runPipeline(cmd, args[0], true)
}

// runPipeline is shared by match and extract. search selects whether faces are
// looked up in the reference database.
func runPipeline(cmd *cobra.Command, imagePath string, search bool) error {
	cfg := config.Load()
	jsonOutput := mustGetBool(cmd, "json")

	settings, outputDir, err := matchSettings(cmd, cfg)
	if err != nil {
		return err
	}

	src, err := facematch.AcquireFile(imagePath, cfg.Matcher.TempDir)
	if err != nil {
		return fmt.Errorf("loading image: %w", err)
	}
	defer src.Cleanup()

	eng, err := openEngine(cmd, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	var observer facematch.Observer = facematch.NopObserver{}
	if !jsonOutput {
		progress := newProgressObserver()
		defer progress.stop()
		observer = progress
	}

	matcher := facematch.NewMatcher(eng.Detector, eng.Searcher, settings,
		facematch.WithTempDir(cfg.Matcher.TempDir),
		facematch.WithOutputDir(outputDir),
		facematch.WithObserver(observer))

	run := matcher.Run
	if !search {
		run = matcher.Extract
	}
	report, err := run(context.Background(), src.Path)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(report)
	}
	printReport(report, search)
	return nil
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func printReport(report *facematch.Report, search bool) {
	for _, w := range report.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	fmt.Println(report.Summary())

	for _, crop := range report.Crops {
		if crop.Path != "" {
			fmt.Printf("Saved face %d to %s\n", crop.Index, crop.Path)
		}
	}
	if !search {
		return
	}

	for _, result := range report.Results {
		switch result.Outcome {
		case facematch.OutcomeMatched:
			fmt.Printf("Face %d: match found: %s (distance %s)\n", result.FaceIndex, result.Label, result.DistanceText())
		case facematch.OutcomeNotMatched:
			fmt.Printf("Face %d: no match found in database\n", result.FaceIndex)
		default:
			fmt.Printf("Error matching face %d: %s\n", result.FaceIndex, result.Reason)
		}
	}
}

// progressObserver shows a spinner on stderr while the engine works.
type progressObserver struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	done    chan struct{}
	stopped sync.WaitGroup
}

func newProgressObserver() *progressObserver {
	return &progressObserver{}
}

func (p *progressObserver) StageChanged(stage facematch.Stage) {
	switch stage {
	case facematch.StageDetecting:
		p.start("Detecting faces")
	case facematch.StageMatching:
		p.describe("Matching faces")
	default:
		if stage.Terminal() {
			p.stop()
		}
	}
}

func (p *progressObserver) Warning(string) {}

func (p *progressObserver) FaceProcessed(crop facematch.FaceCrop, _ facematch.MatchResult) {
	p.describe(fmt.Sprintf("Processed face %d", crop.Index))
}

func (p *progressObserver) start(description string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		return
	}

	p.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
	p.done = make(chan struct{})
	p.stopped.Add(1)

	bar, done := p.bar, p.done
	go func() {
		defer p.stopped.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()
}

func (p *progressObserver) describe(description string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Describe(description)
	}
}

func (p *progressObserver) stop() {
	p.mu.Lock()
	bar, done := p.bar, p.done
	p.bar, p.done = nil, nil
	p.mu.Unlock()

	if bar == nil {
		return
	}
	close(done)
	p.stopped.Wait()
	_ = bar.Finish()
}

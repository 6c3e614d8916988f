package detection

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"go.uber.org/zap"
)

//LoadFrames reads a box map JSON file: {"<frame key>": [box, ...], ...}
func LoadFrames(path string) (Frames, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFrames: %w", err)
	}

	frames := make(Frames)
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("LoadFrames: Could not parse '%s', got '%v'", path, err)
	}
	return frames, nil
}

//detectorLine is what the python detector prints for every processed frame
type detectorLine struct {
	Frame int      `json:"frame"`
	Boxes []RawBox `json:"boxes"`
}

//RunDetector executes a python detector script on a video and collects its output into a box map.
//The script prints one JSON object per frame ({"frame":N,"boxes":[...]}), log lines, and a final "EOF" line.
func RunDetector(ctx context.Context, script, videoPath string) (Frames, error) {
	cmd := exec.CommandContext(ctx, "python3", script, "--video", videoPath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("RunDetector: Error, got '%v'", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("RunDetector: Error, got '%v'", err)
	}

	frames, sawEOF, parseErr := parseDetectorOutput(stdout)
	//keep the pipe empty so teardown prints after "EOF" can't block the script
	if _, err := io.Copy(io.Discard, stdout); err != nil {
		logger.Logger.Warn("RunDetector: Error draining output", zap.Error(err))
	}

	waitErr := cmd.Wait()
	if parseErr != nil {
		return nil, parseErr
	}
	if waitErr != nil {
		if !sawEOF {
			return nil, fmt.Errorf("RunDetector: Error waiting python's process, got '%v'", waitErr)
		}
		logger.Logger.Warn("RunDetector: Detector failed after finishing its output", zap.Error(waitErr), zap.Int("frames", len(frames)))
	}
	return frames, nil
}

//ParseDetectorOutput reads detector lines until EOF (or an "EOF" line). Non JSON lines are skipped, broken JSON lines are logged and skipped.
func ParseDetectorOutput(r io.Reader) (Frames, error) {
	frames, _, err := parseDetectorOutput(r)
	return frames, err
}

//parseDetectorOutput also reports whether the "EOF" line was reached
func parseDetectorOutput(r io.Reader) (Frames, bool, error) {
	frames := make(Frames)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "EOF" {
			return frames, true, nil
		}

		if !strings.HasPrefix(line, "{") { //log print (FPS etc.), skip it
			continue
		}

		var l detectorLine
		if err := json.Unmarshal([]byte(line), &l); err != nil {
			logger.Logger.Warn("ParseDetectorOutput: Skipping line", zap.Error(err))
			continue
		}
		key := strconv.Itoa(l.Frame)
		frames[key] = append(frames[key], l.Boxes...)
	}

	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("ParseDetectorOutput: Error, got '%v'", err)
	}
	return frames, false, nil
}

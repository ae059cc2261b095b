package types

import "time"

// Recognition is the text an OCR backend found in one image.
type Recognition struct {
	Text  string
	Lines []string
}

// OCRResult is the per-image annotation written next to each frame.
type OCRResult struct {
	Image   string   `json:"image"`
	Backend string   `json:"backend"`
	Text    string   `json:"text"`
	Lines   []string `json:"lines"`
}

type Question struct {
	QuestionID int      `json:"questionId"`
	Question   string   `json:"question"`
	Answers    []Answer `json:"answers"`
}

type Answer struct {
	ID        string `json:"id"`
	Answer    string `json:"answer"`
	IsCorrect bool   `json:"isCorrect"`
}

// Report summarizes one pipeline run.
type Report struct {
	Source       string             `json:"source"`
	VideoPath    string             `json:"video_path"`
	FramesDir    string             `json:"frames_dir"`
	Frames       int                `json:"frames"`
	FailedFrames []FailedFrame      `json:"failed_frames"`
	OCRImages    int                `json:"ocr_images"`
	FailedImages []FailedImage      `json:"failed_images"`
	MergedFile   string             `json:"merged_file"`
	Questions    int                `json:"questions"`
	StageSeconds map[string]float64 `json:"stage_seconds"`
}

type FailedFrame struct {
	TimestampSec int    `json:"timestamp_sec"`
	FrameIndex   int64  `json:"frame_index"`
	Error        string `json:"error"`
}

type FailedImage struct {
	Image string `json:"image"`
	Error string `json:"error"`
}

const (
	FrameExtracted = "extracted"
	FrameFailed    = "failed"
)

// FrameRecord is one ledger row: the outcome of sampling a video at one timestamp.
type FrameRecord struct {
	Video        string
	TimestampSec int
	FrameIndex   int64
	Path         string
	Status       string
	Error        string
	UpdatedAt    time.Time
}

//go:build gocv

package pipeline

import (
	"github.com/forPelevin/harvester/internal/ports"
	"github.com/forPelevin/harvester/internal/ports/adapters/gocv"
)

func init() {
	openCV = func() ports.MediaOpener { return gocv.New() }
}

var _ ports.MediaOpener = (*gocv.Adapter)(nil)

package engine

import (
	"shieldscan/internal/features"
	"shieldscan/pkg/types"
)

// Analyzer 所有检测方法的统一接口
type Analyzer interface {
	Name() string
	Analyze(fileInfo types.FileInfo, content []byte, featureSet *features.FeatureSet) (*types.Finding, error)
	RequiredFeatures() []string
}

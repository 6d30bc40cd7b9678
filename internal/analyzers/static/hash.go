/*
 * @Date: 2025-06-05 10:41:09
 * @Description: 已知恶意样本哈希匹配
 */
package static

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shieldscan/internal/features"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

type HashAnalyzer struct {
	analyzerName string
	badHashes    map[string]bool
}

// NewHashAnalyzer 从签名目录加载SampleHash.txt，每行一个sha256。
// 以#开头的行视为注释
func NewHashAnalyzer(dataPath string) (*HashAnalyzer, error) {
	hashes := make(map[string]bool)
	hashFilePath := filepath.Join(dataPath, "SampleHash.txt")
	file, err := os.Open(hashFilePath)
	if err != nil {
		logging.WarnLogger.Warnf("hash signature file not found at %s: %v, hash analyzer will be inactive", hashFilePath, err)
		return &HashAnalyzer{analyzerName: "hash", badHashes: hashes}, nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		hash := strings.TrimSpace(scanner.Text())
		if len(hash) == 64 {
			hashes[strings.ToLower(hash)] = true
		} else if hash != "" && !strings.HasPrefix(hash, "#") {
			logging.WarnLogger.Warnf("invalid hash format on line %d in %s: %s", lineNum, hashFilePath, hash)
		}
	}
	if err := scanner.Err(); err != nil {
		logging.ErrorLogger.Errorf("error reading hash file %s: %v", hashFilePath, err)
	}

	logging.InfoLogger.Infof("loaded %d bad hashes from %s", len(hashes), hashFilePath)
	return &HashAnalyzer{analyzerName: "hash", badHashes: hashes}, nil
}

func (a *HashAnalyzer) Name() string {
	return a.analyzerName
}

func (a *HashAnalyzer) RequiredFeatures() []string {
	return []string{}
}

func (a *HashAnalyzer) Analyze(fileInfo types.FileInfo, content []byte, featureSet *features.FeatureSet) (*types.Finding, error) {
	if len(a.badHashes) == 0 {
		return nil, nil
	}

	hasher := sha256.New()
	if _, err := hasher.Write(content); err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}
	hashString := hex.EncodeToString(hasher.Sum(nil))

	if a.badHashes[strings.ToLower(hashString)] {
		logging.InfoLogger.Infof("hash match found for %s", fileInfo.Path)
		return &types.Finding{
			AnalyzerName: a.analyzerName,
			Description:  fmt.Sprintf("Matched known bad file hash: %s", hashString),
			Risk:         types.RiskCritical,
			Confidence:   1.0,
		}, nil
	}

	return nil, nil
}

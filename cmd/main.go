/*
 * @Date: 2025-06-07 09:12:44
 * @Description: shieldscan 命令行入口
 */
package main

import (
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"shieldscan/internal/alert"
	"shieldscan/internal/analyzers/ml"
	"shieldscan/internal/bridge"
	"shieldscan/internal/config"
	"shieldscan/internal/engine"
	"shieldscan/internal/history"
	"shieldscan/internal/scanner"
	"shieldscan/internal/training"
	"shieldscan/pkg/logging"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	scanPath := flag.String("path", "", "扫描路径，多个用逗号分隔")
	exclude := flag.String("exclude", "", "排除路径，多个用逗号分隔")
	format := flag.String("format", "", "报告格式: console/json/html (覆盖配置文件)")
	output := flag.String("output", "", "报告输出文件路径")
	mode := flag.String("mode", "scan", "运行模式: scan/realtime/scheduled/train")
	goodDir := flag.String("good", "", "训练用正常样本目录 (train模式)")
	badDir := flag.String("bad", "", "训练用webshell样本目录 (train模式)")
	seed := flag.Int64("seed", 42, "训练随机种子")
	quiet := flag.Bool("quiet", false, "只输出警告及以上级别日志")
	flag.Parse()

	if *quiet {
		logging.SetQuiet()
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logging.ErrorLogger.Errorf("加载配置失败: %v", err)
		os.Exit(1)
	}
	if *format != "" {
		cfg.Output.Format = *format
	}

	switch *mode {
	case "scan":
		runScan(cfg, *scanPath, *exclude, *output)
	case "realtime":
		runRealtime(cfg)
	case "scheduled":
		runScheduled(cfg)
	case "train":
		runTrain(cfg, *goodDir, *badDir, *seed)
	default:
		logging.ErrorLogger.Errorf("未知运行模式: %s", *mode)
		os.Exit(1)
	}
}

// runScan 一次性扫描：执行引擎、生成报告、落历史库、触发告警
func runScan(cfg *config.Config, scanPath, exclude, output string) {
	if scanPath == "" {
		logging.ErrorLogger.Errorf("scan模式需要通过 -path 指定扫描路径")
		os.Exit(1)
	}

	eng, err := engine.NewEngine(cfg)
	if err != nil {
		logging.ErrorLogger.Errorf("初始化扫描引擎失败: %v", err)
		os.Exit(1)
	}

	task := &engine.Task{
		Paths:      splitList(scanPath),
		Exclusions: splitList(exclude),
		ReportPath: output,
	}

	startTime := time.Now()
	results, err := eng.Scan(task)
	if err != nil {
		logging.ErrorLogger.Errorf("扫描失败: %v", err)
		os.Exit(1)
	}
	endTime := time.Now()

	// 落历史库，失败不影响本次扫描结果
	histManager, err := history.NewManager(history.Config{
		DBPath:        cfg.Storage.HistoryDB,
		RetentionDays: cfg.Storage.RetentionDays,
		MaxRecords:    int(cfg.Storage.MaxRecords),
	})
	if err != nil {
		logging.WarnLogger.Warnf("打开历史记录数据库失败: %v", err)
	} else {
		defer histManager.Close()
		record := history.NewScanRecord("manual", startTime, endTime, results)
		if err := histManager.RecordScan(record); err != nil {
			logging.WarnLogger.Warnf("记录扫描历史失败: %v", err)
		}
	}

	alerter := alert.NewManager(cfg, 10*time.Minute)
	for _, res := range results {
		if alert.ShouldAlert(res) {
			if err := alerter.SendAlert(res); err != nil {
				logging.WarnLogger.Warnf("告警发送失败 %s: %v", res.File.Path, err)
			}
		}
	}
}

// runRealtime 常驻实时监控模式，收到SIGINT/SIGTERM后优雅退出
func runRealtime(cfg *config.Config) {
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		logging.ErrorLogger.Errorf("初始化扫描引擎失败: %v", err)
		os.Exit(1)
	}
	defer eng.Close()

	alerter := alert.NewManager(cfg, 10*time.Minute)

	rt, err := scanner.NewRealtimeScanner(cfg, eng, alerter)
	if err != nil {
		logging.ErrorLogger.Errorf("初始化实时扫描器失败: %v", err)
		os.Exit(1)
	}
	if err := rt.Start(); err != nil {
		logging.ErrorLogger.Errorf("启动实时扫描失败: %v", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logging.InfoLogger.Infof("收到退出信号，停止实时监控...")
	if err := rt.Stop(); err != nil {
		logging.WarnLogger.Warnf("停止实时扫描器出错: %v", err)
	}
}

// runScheduled 常驻定时扫描模式，按配置的起始时间与周期做全量扫描
func runScheduled(cfg *config.Config) {
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		logging.ErrorLogger.Errorf("初始化扫描引擎失败: %v", err)
		os.Exit(1)
	}
	defer eng.Close()

	var histManager *history.Manager
	histManager, err = history.NewManager(history.Config{
		DBPath:        cfg.Storage.HistoryDB,
		RetentionDays: cfg.Storage.RetentionDays,
		MaxRecords:    int(cfg.Storage.MaxRecords),
	})
	if err != nil {
		logging.WarnLogger.Warnf("打开历史记录数据库失败: %v，本次运行不记录历史", err)
		histManager = nil
	} else {
		defer histManager.Close()
	}

	alerter := alert.NewManager(cfg, 10*time.Minute)

	sched, err := scanner.NewScheduledScanner(cfg, eng, alerter, histManager)
	if err != nil {
		logging.ErrorLogger.Errorf("初始化定时扫描器失败: %v", err)
		os.Exit(1)
	}
	if err := sched.Start(); err != nil {
		logging.ErrorLogger.Errorf("启动定时扫描失败: %v", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logging.InfoLogger.Infof("收到退出信号，停止定时扫描...")
	if err := sched.Stop(); err != nil {
		logging.WarnLogger.Warnf("停止定时扫描器出错: %v", err)
	}
}

// runTrain 训练模式：先训练Bayes词袋模型，再用它提取第9维特征
// 训练融合SVM模型。两个模型都写入配置的模型目录
func runTrain(cfg *config.Config, goodDir, badDir string, seed int64) {
	if goodDir == "" || badDir == "" {
		logging.ErrorLogger.Errorf("train模式需要通过 -good 和 -bad 指定两类样本目录")
		os.Exit(1)
	}

	parser := bridge.NewPhpBridge(filepath.Join(cfg.DataPaths.Config, "php_ast_runtime"))
	if err := parser.Initialize(cfg.Detection.PHPVersion); err != nil {
		logging.ErrorLogger.Errorf("初始化AST解析器失败: %v", err)
		os.Exit(1)
	}
	defer parser.Cleanup()

	outputDir := cfg.DataPaths.Models

	logging.InfoLogger.Infof("开始训练Bayes词袋模型...")
	if err := training.TrainBayesModel(goodDir, badDir, outputDir, parser); err != nil {
		logging.ErrorLogger.Errorf("Bayes模型训练失败: %v", err)
		os.Exit(1)
	}

	bayes, err := ml.NewBayesWordsAnalyzer(outputDir)
	if err != nil {
		logging.ErrorLogger.Errorf("加载刚训练的Bayes模型失败: %v", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(seed))

	logging.InfoLogger.Infof("开始提取SVM训练特征...")
	ds, err := training.LoadDataset(goodDir, badDir, bayes, parser, rng)
	if err != nil {
		logging.ErrorLogger.Errorf("构建训练数据集失败: %v", err)
		os.Exit(1)
	}

	logging.InfoLogger.Infof("开始训练融合SVM模型...")
	if err := training.TrainSVMModel(ds, outputDir, rng); err != nil {
		logging.ErrorLogger.Errorf("SVM模型训练失败: %v", err)
		os.Exit(1)
	}

	logging.InfoLogger.Infof("训练完成，模型已写入 %s", outputDir)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

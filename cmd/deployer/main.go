package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"

	"price-prediction-service/internal/adapters/secondary/artifact"
	"price-prediction-service/internal/adapters/secondary/gateway"
	"price-prediction-service/internal/adapters/secondary/kube"
	"price-prediction-service/internal/adapters/secondary/smoke"
	"price-prediction-service/internal/config"
	"price-prediction-service/internal/core/domain"
	"price-prediction-service/internal/core/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deployer",
		Short:         "Render and apply the prediction server release",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.DeployFlags(root.PersistentFlags())

	root.AddCommand(newRenderCmd(), newApplyCmd(), newSmokeCmd())
	return root
}

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Write the Deployment, Service and gateway config to --out",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, release, err := loadRelease(cmd)
			if err != nil {
				return err
			}

			svc := services.NewReleaseService(kube.NewRenderer(), gateway.NewOpenAPIRenderer(""), nil)
			files, err := svc.Render(release)
			if err != nil {
				log.WithError(err).Error("render release failed")
				return err
			}

			if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			for _, f := range files {
				path := filepath.Join(cfg.OutDir, f.Name)
				if err := os.WriteFile(path, f.Content, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				log.WithField("path", path).Info("file rendered")
			}
			return nil
		},
	}
}

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Server-side apply the Deployment and Service to the cluster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, release, err := loadRelease(cmd)
			if err != nil {
				return err
			}

			cluster, err := kube.NewClusterClient(&cfg.Kubernetes)
			if err != nil {
				log.WithError(err).Error("kubernetes client init failed")
				return err
			}

			svc := services.NewReleaseService(nil, nil, cluster)
			if _, err := svc.Apply(cmd.Context(), release); err != nil {
				log.WithError(err).Error("apply release failed")
				return err
			}

			log.WithFields(log.Fields{
				"name":      release.Name,
				"namespace": release.Namespace,
				"image":     release.Image,
			}).Info("release applied")
			return nil
		},
	}
}

func newSmokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Check a running release: GET / and, with --sample, POST /predict",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadDeploy(cmd.Flags())
			if err != nil {
				return err
			}
			initLogger(cfg.Logger)

			url, _ := cmd.Flags().GetString("url")
			apiKey, _ := cmd.Flags().GetString("api-key")
			samplePath, _ := cmd.Flags().GetString("sample")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			client := smoke.NewClient(url, apiKey, timeout)
			if err := client.Health(cmd.Context()); err != nil {
				log.WithError(err).Error("health check failed")
				return err
			}
			log.WithField("url", url).Info("health check passed")

			if samplePath == "" {
				return nil
			}
			sample, err := readSample(samplePath)
			if err != nil {
				return err
			}
			result, err := client.Predict(cmd.Context(), sample)
			if err != nil {
				log.WithError(err).Error("prediction check failed")
				return err
			}
			log.WithField("predict", result.Predict).Info("prediction check passed")
			return nil
		},
	}

	cmd.Flags().String("url", "http://127.0.0.1:8080", "base URL of the prediction server or gateway")
	cmd.Flags().String("api-key", "", "API key passed to the gateway as ?key=")
	cmd.Flags().String("sample", "", "JSON file holding one feature object to post to /predict")
	cmd.Flags().Duration("timeout", 10*time.Second, "per-request timeout")
	return cmd
}

func readSample(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	var sample map[string]interface{}
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, fmt.Errorf("decode sample %s: %w", path, err)
	}
	return sample, nil
}

func loadRelease(cmd *cobra.Command) (*config.DeployConfig, *domain.Release, error) {
	cfg, err := config.LoadDeploy(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	initLogger(cfg.Logger)

	var features []string
	if cfg.ModelPath != "" {
		model, err := artifact.Load(cfg.ModelPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load model: %w", err)
		}
		features = model.Features()
	}

	return cfg, cfg.Release(features), nil
}

func initLogger(cfg config.LoggerConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

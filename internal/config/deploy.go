package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"price-prediction-service/internal/core/domain"
)

const defaultGatewayImage = "gcr.io/endpoints-release/endpoints-runtime:1"

// DeployConfig configures the deployer. Every flag can also be set through a
// DEPLOY_-prefixed environment variable, e.g. --server-port as DEPLOY_SERVER_PORT.
type DeployConfig struct {
	Name           string
	Namespace      string
	ProjectID      string
	Image          string
	Replicas       int32
	ServerPort     int32
	ProxyPort      int32
	GatewayService string
	GatewayImage   string

	ReadinessInitialDelay time.Duration
	ReadinessPeriod       time.Duration
	TerminationGrace      time.Duration
	PreStopDelay          time.Duration

	ModelPath string
	OutDir    string

	Kubernetes KubernetesConfig
	Logger     LoggerConfig
}

type KubernetesConfig struct {
	InCluster      bool
	KubeConfigPath string
	FieldManager   string
}

// DeployFlags registers the deployer flags on fs.
func DeployFlags(fs *pflag.FlagSet) {
	fs.String("name", "housing-predictor", "release name, used for the Deployment, Service and app label")
	fs.String("namespace", "default", "target namespace")
	fs.String("project", "", "cloud project ID hosting the managed API")
	fs.String("image", "", "prediction server image")
	fs.Int32("replicas", 3, "number of replicas")
	fs.Int32("server-port", 8080, "port the prediction server listens on")
	fs.Int32("proxy-port", 8081, "port the gateway sidecar listens on")
	fs.String("gateway-service", "", "managed API service name (default <name>.endpoints.<project>.cloud.goog)")
	fs.String("gateway-image", defaultGatewayImage, "gateway sidecar image")
	fs.Duration("readiness-initial-delay", 10*time.Second, "readiness probe initial delay")
	fs.Duration("readiness-period", 5*time.Second, "readiness probe period")
	fs.Duration("termination-grace", 30*time.Second, "pod termination grace period")
	fs.Duration("prestop-delay", 0, "sleep before SIGTERM so endpoints drain (0 disables)")
	fs.String("model", "", "model artifact whose features are published in the gateway schema")
	fs.String("out", "deploy", "output directory for rendered files")
	fs.String("kubeconfig", "", "path to kubeconfig (default ~/.kube/config)")
	fs.Bool("in-cluster", false, "use the in-cluster service account")
	fs.String("field-manager", "price-predictor-deployer", "server-side apply field manager")
	fs.String("log-level", "info", "log level")
	fs.String("log-format", "text", "log format (json or text)")
}

// LoadDeploy reads the deployer configuration from fs and the environment.
func LoadDeploy(fs *pflag.FlagSet) (*DeployConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("DEPLOY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	return &DeployConfig{
		Name:                  v.GetString("name"),
		Namespace:             v.GetString("namespace"),
		ProjectID:             v.GetString("project"),
		Image:                 v.GetString("image"),
		Replicas:              v.GetInt32("replicas"),
		ServerPort:            v.GetInt32("server-port"),
		ProxyPort:             v.GetInt32("proxy-port"),
		GatewayService:        v.GetString("gateway-service"),
		GatewayImage:          v.GetString("gateway-image"),
		ReadinessInitialDelay: v.GetDuration("readiness-initial-delay"),
		ReadinessPeriod:       v.GetDuration("readiness-period"),
		TerminationGrace:      v.GetDuration("termination-grace"),
		PreStopDelay:          v.GetDuration("prestop-delay"),
		ModelPath:             v.GetString("model"),
		OutDir:                v.GetString("out"),
		Kubernetes: KubernetesConfig{
			InCluster:      v.GetBool("in-cluster"),
			KubeConfigPath: v.GetString("kubeconfig"),
			FieldManager:   v.GetString("field-manager"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("log-level"),
			Format: v.GetString("log-format"),
		},
	}, nil
}

// Release builds the release described by this configuration.
func (c *DeployConfig) Release(features []string) *domain.Release {
	return &domain.Release{
		Name:                  c.Name,
		Namespace:             c.Namespace,
		ProjectID:             c.ProjectID,
		Image:                 c.Image,
		Replicas:              c.Replicas,
		ServerPort:            c.ServerPort,
		ProxyPort:             c.ProxyPort,
		GatewayService:        c.GatewayService,
		GatewayImage:          c.GatewayImage,
		ReadinessInitialDelay: c.ReadinessInitialDelay,
		ReadinessPeriod:       c.ReadinessPeriod,
		TerminationGrace:      c.TerminationGrace,
		PreStopDelay:          c.PreStopDelay,
		ModelFeatures:         features,
	}
}

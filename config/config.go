// Package config 加载客户端与模拟网关的配置，支持 yaml 与 toml 两种格式。
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/aaronwong1989/smppc/client"
	"github.com/aaronwong1989/smppc/codec/smpp"
)

// EnvConfPath 配置文件路径的环境变量
const EnvConfPath = "SMPP_CONF_PATH"

type Config struct {
	// 连接参数
	Host                string        `yaml:"host" toml:"host"`
	Port                int           `yaml:"port" toml:"port"`
	ConnectTimeout      time.Duration `yaml:"connect-timeout" toml:"connect-timeout"`
	RequestTimeout      time.Duration `yaml:"request-timeout" toml:"request-timeout"`
	EnquireLinkInterval time.Duration `yaml:"enquire-link-interval" toml:"enquire-link-interval"`
	MaxFrameLength      int           `yaml:"max-frame-length" toml:"max-frame-length"`

	// 绑定参数
	BindMode         string `yaml:"bind-mode" toml:"bind-mode"`
	SystemId         string `yaml:"system-id" toml:"system-id"`
	Password         string `yaml:"password" toml:"password"`
	SystemType       string `yaml:"system-type" toml:"system-type"`
	InterfaceVersion uint8  `yaml:"interface-version" toml:"interface-version"`
	SourceTon        uint8  `yaml:"source-ton" toml:"source-ton"`
	SourceNpi        uint8  `yaml:"source-npi" toml:"source-npi"`
	SourceAddr       string `yaml:"source-addr" toml:"source-addr"`

	// 批量发送
	MaxPoolSize int `yaml:"max-pool-size" toml:"max-pool-size"`

	Logging   Logging   `yaml:"logging" toml:"logging"`
	Simulator Simulator `yaml:"simulator" toml:"simulator"`
}

type Logging struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"`
}

// Simulator 模拟网关相关参数
type Simulator struct {
	Port               int           `yaml:"port" toml:"port"`
	Multicore          bool          `yaml:"multicore" toml:"multicore"`
	SystemId           string        `yaml:"system-id" toml:"system-id"`
	Password           string        `yaml:"password" toml:"password"`
	AuthCheck          bool          `yaml:"auth-check" toml:"auth-check"`
	SuccessRate        int32         `yaml:"success-rate" toml:"success-rate"`
	MinSubmitRespMs    int32         `yaml:"min-submit-resp-ms" toml:"min-submit-resp-ms"`
	MaxSubmitRespMs    int32         `yaml:"max-submit-resp-ms" toml:"max-submit-resp-ms"`
	FixReportRespMs    int32         `yaml:"fix-report-resp-ms" toml:"fix-report-resp-ms"`
	ActiveTestDuration time.Duration `yaml:"active-test-duration" toml:"active-test-duration"`
	MaxCons            int           `yaml:"max-cons" toml:"max-cons"`
	ReceiveWindowSize  int           `yaml:"receive-window-size" toml:"receive-window-size"`
	MaxPoolSize        int           `yaml:"max-pool-size" toml:"max-pool-size"`
	DataCenterId       int32         `yaml:"datacenter-id" toml:"datacenter-id"`
	WorkerId           int32         `yaml:"worker-id" toml:"worker-id"`
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		Host:             "127.0.0.1",
		Port:             client.DefaultPort,
		ConnectTimeout:   client.DefaultConnectTimeout,
		MaxFrameLength:   client.DefaultMaxFrameLength,
		BindMode:         "transceiver",
		InterfaceVersion: smpp.SMPP_V34,
		MaxPoolSize:      64,
		Logging:          Logging{Level: "info"},
		Simulator: Simulator{
			Port:               client.DefaultPort,
			SuccessRate:        100,
			MinSubmitRespMs:    1,
			MaxSubmitRespMs:    10,
			FixReportRespMs:    100,
			ActiveTestDuration: time.Minute,
			MaxCons:            16,
			ReceiveWindowSize:  64,
			MaxPoolSize:        256,
		},
	}
}

// Load 按扩展名读取 yaml 或 toml 配置文件，未配置的项保留默认值
func Load(path string) (*Config, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	conf := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(bts, conf)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(bts, conf)
	default:
		return nil, errors.Errorf("unsupported config format %s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err = conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// LoadDefault 读取 SMPP_CONF_PATH 指定的配置，未设置时使用当前目录下的 smppc.yaml
func LoadDefault() (*Config, error) {
	path := os.Getenv(EnvConfPath)
	if len(path) == 0 {
		path = "smppc.yaml"
	}
	return Load(path)
}

// Validate 校验配置，返回全部错误
func (c *Config) Validate() error {
	var err error
	if len(c.Host) == 0 {
		err = multierr.Append(err, errors.New("host is empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		err = multierr.Append(err, errors.Errorf("invalid port %d", c.Port))
	}
	if c.ConnectTimeout < 0 || c.RequestTimeout < 0 || c.EnquireLinkInterval < 0 {
		err = multierr.Append(err, errors.New("durations must not be negative"))
	}
	if _, e := client.ParseBindMode(c.BindMode); e != nil {
		err = multierr.Append(err, e)
	}
	if len(c.SystemId) == 0 {
		err = multierr.Append(err, errors.New("system-id is empty"))
	}
	if len(c.SystemId) >= smpp.MaxSystemIdLength {
		err = multierr.Append(err, errors.Errorf("system-id longer than %d", smpp.MaxSystemIdLength-1))
	}
	if len(c.Password) >= smpp.MaxPasswordLength {
		err = multierr.Append(err, errors.Errorf("password longer than %d", smpp.MaxPasswordLength-1))
	}
	if c.MaxPoolSize <= 0 {
		err = multierr.Append(err, errors.Errorf("invalid max-pool-size %d", c.MaxPoolSize))
	}
	s := &c.Simulator
	if s.SuccessRate < 0 || s.SuccessRate > 100 {
		err = multierr.Append(err, errors.Errorf("invalid simulator success-rate %d", s.SuccessRate))
	}
	if s.MinSubmitRespMs < 0 || s.MaxSubmitRespMs < s.MinSubmitRespMs {
		err = multierr.Append(err, errors.Errorf("invalid simulator submit resp range [%d, %d]", s.MinSubmitRespMs, s.MaxSubmitRespMs))
	}
	return err
}

// Address 会话使用的源地址
func (c *Config) Address() smpp.Address {
	return smpp.NewAddress(c.SourceTon, c.SourceNpi, c.SourceAddr)
}

// NewSession 按配置构造客户端会话
func (c *Config) NewSession() (*client.Session, error) {
	mode, err := client.ParseBindMode(c.BindMode)
	if err != nil {
		return nil, err
	}
	return client.NewSession(mode, c.SystemId,
		client.WithPassword(c.Password),
		client.WithSystemType(c.SystemType),
		client.WithAddress(c.Address()),
		client.WithInterfaceVersion(c.InterfaceVersion),
	), nil
}

// ClientOptions 按配置生成客户端选项
func (c *Config) ClientOptions() []client.Option {
	return []client.Option{
		client.WithRequestTimeout(c.RequestTimeout),
		client.WithEnquireLinkInterval(c.EnquireLinkInterval),
		client.WithMaxFrameLength(c.MaxFrameLength),
	}
}

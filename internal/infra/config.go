package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xela07ax/statusboard/internal/domain"
)

// Config — корневая структура конфигурации обоих процессов.
type Config struct {
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// DashboardConfig задаёт адреса двух слушателей и начальное состояние хранилища.
type DashboardConfig struct {
	ControlAddr  string            `mapstructure:"control_addr"`
	WebAddr      string            `mapstructure:"web_addr"`
	SystemStatus string            `mapstructure:"system_status"`
	Devices      []domain.Device   `mapstructure:"devices"`
	Vars         map[string]string `mapstructure:"vars"`
}

// MonitorConfig определяет, куда и как часто монитор рассылает статус.
type MonitorConfig struct {
	FrontendHost     string                   `mapstructure:"frontend_host"`
	FrontendPort     string                   `mapstructure:"frontend_port"`
	Interval         time.Duration            `mapstructure:"interval"`
	BroadcastTimeout time.Duration            `mapstructure:"broadcast_timeout"`
	Devices          []domain.MonitoredDevice `mapstructure:"devices"`
}

// NotifyConfig настраивает протокол уведомлений дашборд -> монитор.
type NotifyConfig struct {
	Addr        string        `mapstructure:"addr"`        // куда шлёт дашборд
	ListenAddr  string        `mapstructure:"listen_addr"` // где слушает монитор
	Timeout     time.Duration `mapstructure:"timeout"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// ServerConfig описывает поведение диспетчера соединений.
type ServerConfig struct {
	ReadBuffer      int           `mapstructure:"read_buffer"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	MaxConnsPerRole int           `mapstructure:"max_conns_per_role"`
	AcceptRate      float64       `mapstructure:"accept_rate"` // соединений в секунду на роль
	AcceptBurst     int           `mapstructure:"accept_burst"`
	BindAttempts    uint          `mapstructure:"bind_attempts"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig задаёт адрес promhttp. Пустой адрес отключает экспорт.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// RedisConfig описывает подключение к Redis для ленты событий статуса.
// Пустой Addr отключает публикацию.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MQTTConfig описывает брокер для зеркала ленты событий. Пустой Broker отключает публикацию.
type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"` // tcp://host:1883
	ClientID       string        `mapstructure:"client_id"`
	Topic          string        `mapstructure:"topic"`
	QoS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig объединяет значения из файла, ENV и флагов (флаги старше).
// flags может быть nil.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. Переменные окружения: DASHBOARD_WEB_ADDR перекроет dashboard.web_addr
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Флаги командной строки
	if flags != nil {
		if cfgFile, _ := flags.GetString("config"); cfgFile != "" {
			v.SetConfigFile(cfgFile)
		}
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	// 5. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет, работаем на ENV и дефолтах
	}

	// 6. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dashboard.control_addr", ":12345")
	v.SetDefault("dashboard.web_addr", ":8080")
	v.SetDefault("dashboard.system_status", domain.DefaultSystemStatus)
	v.SetDefault("dashboard.devices", domain.DefaultDashboardDevices())
	v.SetDefault("dashboard.vars", domain.DefaultAppVars())

	v.SetDefault("monitor.frontend_host", "127.0.0.1")
	v.SetDefault("monitor.frontend_port", "12345")
	v.SetDefault("monitor.interval", 5*time.Second)
	v.SetDefault("monitor.broadcast_timeout", 2*time.Second)
	v.SetDefault("monitor.devices", domain.DefaultMonitoredDevices())

	v.SetDefault("notify.addr", "127.0.0.1:54321")
	v.SetDefault("notify.listen_addr", ":54321")
	v.SetDefault("notify.timeout", 1*time.Second)
	v.SetDefault("notify.read_timeout", 5*time.Second)

	v.SetDefault("server.read_buffer", 4096)
	v.SetDefault("server.idle_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Second)
	v.SetDefault("server.max_body_size", 1<<20)
	v.SetDefault("server.max_conns_per_role", 256)
	v.SetDefault("server.accept_rate", 500.0)
	v.SetDefault("server.accept_burst", 100)
	v.SetDefault("server.bind_attempts", 3)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "statusboard-dashboard")
	v.SetDefault("mqtt.topic", "statusboard/events")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connect_timeout", 5*time.Second)
	v.SetDefault("mqtt.publish_timeout", 2*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

func (c *Config) validate() error {
	if c.Server.ReadBuffer <= 0 {
		return fmt.Errorf("server.read_buffer must be positive, got %d", c.Server.ReadBuffer)
	}
	if c.Server.MaxConnsPerRole <= 0 {
		return fmt.Errorf("server.max_conns_per_role must be positive, got %d", c.Server.MaxConnsPerRole)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	for _, d := range c.Monitor.Devices {
		if d.FaultProbability < 0 || d.FaultProbability > 100 {
			return fmt.Errorf("monitor.devices: %q fault_probability %d out of [0,100]", d.Name, d.FaultProbability)
		}
	}
	return nil
}

package entities

// PlanterConfig is the YAML configuration of the controller.
type PlanterConfig struct {
	DeviceID       string          `yaml:"device_id"`
	Simulation     bool            `yaml:"simulation"`
	SimulationSeed int64           `yaml:"simulation_seed"`
	LogLevel       string          `yaml:"log_level"`
	LogFormat      string          `yaml:"log_format"`
	StateFile      string          `yaml:"state_file"`
	Monitor        MonitorConfig   `yaml:"monitor"`
	Safety         SafetyConfig    `yaml:"safety"`
	Reporting      ReportingConfig `yaml:"reporting"`
	Plants         []Plant         `yaml:"plants"`
	API            APIConfig       `yaml:"api"`
	Sinks          SinksConfig     `yaml:"sinks"`
}

type MonitorConfig struct {
	IntervalSeconds      int `yaml:"interval_seconds"`
	WateringPauseSeconds int `yaml:"watering_pause_seconds"`
}

// SafetyConfig bounds pump actuation. A zero MinTankPercent disables the tank interlock.
type SafetyConfig struct {
	MaxPumpSeconds int     `yaml:"max_pump_seconds"`
	MinTankPercent float64 `yaml:"min_tank_percent"`
}

type ReportingConfig struct {
	URL                string `yaml:"url"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	BreakerFailures    uint32 `yaml:"breaker_failures"`
	BreakerOpenSeconds int    `yaml:"breaker_open_seconds"`
}

type APIConfig struct {
	Listen string `yaml:"listen"`
}

type SinksConfig struct {
	AMQP   AMQPConfig   `yaml:"amqp"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Influx InfluxConfig `yaml:"influx"`
	Kafka  KafkaConfig  `yaml:"kafka"`
}

type AMQPConfig struct {
	URL            string `yaml:"url"`
	Exchange       string `yaml:"exchange"`
	EventsExchange string `yaml:"events_exchange"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// DefaultPlanterConfig returns the configuration used for keys absent from the file.
func DefaultPlanterConfig() PlanterConfig {
	return PlanterConfig{
		DeviceID:   "planter",
		Simulation: false,
		LogLevel:   "info",
		LogFormat:  "text",
		Monitor: MonitorConfig{
			IntervalSeconds:      300,
			WateringPauseSeconds: 2,
		},
		Safety: SafetyConfig{
			MaxPumpSeconds: 30,
			MinTankPercent: 33.3,
		},
		Reporting: ReportingConfig{
			TimeoutSeconds:     5,
			BreakerFailures:    5,
			BreakerOpenSeconds: 60,
		},
		Sinks: SinksConfig{
			AMQP:  AMQPConfig{Exchange: "planter.readings", EventsExchange: "planter.events"},
			MQTT:  MQTTConfig{ClientID: "planter", TopicPrefix: "planter", QoS: 1},
			Kafka: KafkaConfig{Topic: "planter"},
		},
	}
}

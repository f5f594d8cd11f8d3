package conf

import (
	"time"
)

// Bootstrap 配置根节点（对应 configs/config.yaml）
type Bootstrap struct {
	Server     *Server     `json:"server"`
	Data       *Data       `json:"data"`
	Log        *Log        `json:"log"`
	Settlement *Settlement `json:"settlement"`
}

// Server HTTP 服务配置
type Server struct {
	Http *Server_HTTP `json:"http"`
}

// Server_HTTP HTTP 监听配置
type Server_HTTP struct {
	Network string `json:"network"`
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
}

// Data 数据层配置
type Data struct {
	Database *Data_Database `json:"database"`
	// Batch 批处理专用连接池，Source 为空时复用 Database.Source 但使用独立连接池
	Batch    *Data_Database `json:"batch"`
	Redis    *Data_Redis    `json:"redis"`
	Rocketmq *Data_RocketMQ `json:"rocketmq"`
}

// Data_Database 数据库配置
type Data_Database struct {
	Driver          string `json:"driver"` // mysql | postgres | sqlite
	Source          string `json:"source"`
	MaxOpenConns    int    `json:"max_open_conns"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	ConnMaxLifetime string `json:"conn_max_lifetime"`
	AutoMigrate     bool   `json:"auto_migrate"`
}

// Data_Redis Redis 配置，Addr 为空表示不启用
type Data_Redis struct {
	Addr         string `json:"addr"`
	Password     string `json:"password"`
	Db           int    `json:"db"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

// Data_RocketMQ RocketMQ 生产者配置
type Data_RocketMQ struct {
	Enabled     bool     `json:"enabled"`
	NameServers []string `json:"name_servers"`
	GroupName   string   `json:"group_name"`
	// ConsumerGroup 查询服务订阅流水线事件的消费组，为空时使用 GroupName + "-query"
	ConsumerGroup string `json:"consumer_group"`
	Topic         string `json:"topic"`
	RetryTimes    int    `json:"retry_times"`
}

// Log 日志配置
type Log struct {
	Level         string `json:"level"`
	Format        string `json:"format"`
	Output        string `json:"output"`
	FilePath      string `json:"file_path"`
	MaxSize       int    `json:"max_size"`
	MaxAge        int    `json:"max_age"`
	MaxBackups    int    `json:"max_backups"`
	Compress      bool   `json:"compress"`
	EnableConsole bool   `json:"enable_console"`
}

// Settlement 结算流水线配置
type Settlement struct {
	Timezone           string    `json:"timezone"`
	RoundingMode       string    `json:"rounding_mode"`
	RunLockTimeout     string    `json:"run_lock_timeout"`
	StepTimeout        string    `json:"step_timeout"`
	ExportTimeout      string    `json:"export_timeout"`
	BatchSize          int       `json:"batch_size"`
	TargetDate         string    `json:"target_date"` // 2006-01-02，为空时使用结算时区的“昨天”
	AllowedChargeRates []string  `json:"allowed_charge_rates"`
	MetricsAddr        string    `json:"metrics_addr"`
	PipelineA          *Pipeline `json:"pipeline_a"`
	PipelineB          *Pipeline `json:"pipeline_b"`
}

// Pipeline 单条流水线的调度配置
type Pipeline struct {
	Enabled bool   `json:"enabled"`
	Spec    string `json:"spec"`
}

// ParseDuration 解析配置中的时长字符串，为空或非法时返回默认值
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

package config

type IMAPConfig struct {
	Server   string `env:"IMAP_SERVER,required"`
	Port     int    `env:"IMAP_PORT" envDefault:"993"`
	Username string `env:"IMAP_USER,required"`
	Password string `env:"IMAP_PASSWORD,required"`
	TLS      bool   `env:"IMAP_TLS" envDefault:"true"`
}

type DatabaseConfig struct {
	Host            string `env:"SUPABASE_DB_HOST,required"`
	Port            string `env:"SUPABASE_DB_PORT" envDefault:"5432"`
	User            string `env:"SUPABASE_DB_USER,required"`
	DBName          string `env:"SUPABASE_DB_NAME" envDefault:"postgres"`
	Password        string `env:"SUPABASE_DB_PASSWORD,required"`
	MaxConn         int    `env:"SUPABASE_DB_MAX_CONN" envDefault:"10"`
	MaxIdleConn     int    `env:"SUPABASE_DB_MAX_IDLE_CONN" envDefault:"5"`
	ConnMaxLifetime int    `env:"SUPABASE_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"SUPABASE_DB_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"SUPABASE_DB_SSL_MODE" envDefault:"require"`
}

type ProcessorConfig struct {
	PollingInterval     int      `env:"POLLING_INTERVAL" envDefault:"60"`
	PollingIntervalIdle int      `env:"POLLING_INTERVAL_IDLE" envDefault:"300"`
	IdleCycleThreshold  int      `env:"IDLE_CYCLE_THRESHOLD" envDefault:"3"`
	ProcessedFolder     string   `env:"PROCESSED_FOLDER" envDefault:"procesados"`
	BankFolder          string   `env:"BANK_FOLDER" envDefault:"BanBajio"`
	OtherFolder         string   `env:"OTHER_FOLDER" envDefault:"BanBajio/otros"`
	BankDomains         []string `env:"BANK_DOMAINS" envSeparator:"," envDefault:"@bb.com.mx,@bb.com"`
}

type ScheduleConfig struct {
	Enabled   bool   `env:"SCHEDULE_ENABLED" envDefault:"true"`
	StartTime string `env:"SCHEDULE_START_TIME" envDefault:"09:00"`
	EndTime   string `env:"SCHEDULE_END_TIME" envDefault:"18:00"`
	Days      []int  `env:"SCHEDULE_DAYS" envSeparator:"," envDefault:"1,2,3,4,5"`
	Timezone  string `env:"SCHEDULE_TIMEZONE" envDefault:"America/Mexico_City"`
}

type CronConfig struct {
	Heartbeat    string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 */30 * * * *"`
	LedgerReport string `env:"CRON_SCHEDULE_LEDGER_REPORT" envDefault:"0 0 7 * * *"`
}

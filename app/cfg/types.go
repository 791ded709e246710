package cfg

type Cfg struct {
	// Telegram configuration
	BotToken  string
	ChannelID string
	IVRHash   string

	// Application configuration
	DatabasePath      string
	FeedsDir          string
	CheckInterval     int // minutes
	MinSendInterval   int // seconds
	MaxFetchRetries   int
	RetryBaseDelay    int // seconds
	FloodFallbackWait int // seconds
	RequeueOnFlood    bool
	RenderTemplate    string
	SummaryBudget     int // characters
	Port              string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

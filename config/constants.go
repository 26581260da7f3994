package config

import "time"

/* =========================
   ECONOMY
========================= */

const (
	DefaultStartMoney = 2000.0 // starting money per participant
	DefaultMaxGoods   = 2000   // warehouse capacity
	DefaultDecimals   = 1      // decimal places shown for money
)

/* =========================
   TRIAL SEQUENCE
========================= */

const (
	DefaultBlocks = 5
	DefaultTrials = 5   // trials per block
	DefaultQtyMax = 600 // only used to normalise quantities into proportions

	// Quantity = QtyBase + QtySpread*U[0,1)
	DefaultQtyBase   = 100.0
	DefaultQtySpread = 500.0

	// StartPrice = qty * U[PriceMultMin, PriceMultMax)
	DefaultPriceMultMin = 0.5
	DefaultPriceMultMax = 1.5
)

/* =========================
   AUCTION CLOCK
========================= */

const (
	DefaultPriceSteps        = 80
	DefaultPriceStepDuration = 50 * time.Millisecond // auction duration = steps * step duration

	DefaultStartDelay  = 5 * time.Second // pre-roll after the operator starts
	DefaultDelayBefore = 2 * time.Second // ready -> running
	DefaultDelayAfter  = 2 * time.Second // winning bid -> next trial
)

/* =========================
   PARTICIPANTS
========================= */

const (
	DefaultOpponentName = "Gladys"
)

// DefaultNames is the finite name pool; its length caps concurrent bidders.
var DefaultNames = []string{
	"Fred",
	"Jim",
	"Bob",
	"Willy",
	"Mr Pig",
	"Mary",
	"Alice",
	"Burt",
}

/* =========================
   SERVER
========================= */

const (
	DefaultPort      = 3033
	DefaultStaticDir = "www"
	DefaultDataDir   = "data"
	DefaultIndexFile = "default.html"

	HeartbeatSpec = "@every 30s"
)

/* =========================
   STORAGE
========================= */

const (
	DefaultRedisAddr = "localhost:6379"
	DefaultMongoDB   = "dutch_auction"

	RedisSessionKey      = "auction:%s:session"      // auction:{runId}:session
	RedisParticipantsKey = "auction:%s:participants" // auction:{runId}:participants (HASH)
	RedisEventsChannel   = "auction:%s:events"       // auction:{runId}:events (PUB/SUB)
	RedisSnapshotTTL     = 12 * time.Hour

	MirrorQueueSize = 16
	MirrorTimeout   = 5 * time.Second
)

/* =========================
   WEBSOCKET
========================= */

const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSSendBuffer      = 64
	WSWriteDeadline   = 10 * time.Second
	MaxMessageSize    = 4 * 1024
)

package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "reservd"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	// Lease on a reserved hold before the sweeper reclaims it.
	DefaultHoldDuration = 15 * time.Minute
	// How often each coordinator scans for lapsed holds.
	DefaultSweepInterval = 60 * time.Second
	// Buffered events per live subscriber before it is dropped.
	DefaultSubscriberBuffer = 16

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLogLevel = "info"

	DefaultAllocationTopic    = "reservation.allocations"
	DefaultBookingEventsTopic = "booking.events"
	DefaultBookingEventsGroup = "reservd-coordinator"
	DefaultKafkaEnabled       = false
)

// Package messaging is a broker-agnostic publish/consume API.
//
// Business code depends on Publisher/Consumer; NATS and NSQ implementations
// live here and are picked by NewFromDriver. The memory driver keeps
// everything in process for local runs and tests.
package messaging

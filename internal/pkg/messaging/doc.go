// Package messaging publishes domain events to a broker.
//
// Publisher hides the broker behind one method. Supported drivers are NATS,
// Kafka, NSQ and Google Pub/Sub; Memory keeps messages in process for tests
// and single-node setups, and Noop drops them.
package messaging

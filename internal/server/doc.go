// Package server provides the HTTP surface of inboxplan: a dedicated
// metrics listener exposing Prometheus metrics and a health check,
// isolated from any other traffic.
package server

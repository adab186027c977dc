package main

import (
	"fmt"
	"log"
)

// Logger prints colored, tagged lines for a human watching the simulation.
type Logger struct{}

func (l *Logger) line(color, tag, msg string, args ...interface{}) {
	log.Printf("%s[%s]%s %s", color, tag, Reset, fmt.Sprintf(msg, args...))
}

func (l *Logger) Info(msg string, args ...interface{})      { l.line(Green, "SIM", msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})      { l.line(Yellow, "WARN", msg, args...) }
func (l *Logger) Error(msg string, args ...interface{})     { l.line(Red, "ERROR", msg, args...) }
func (l *Logger) WebSocket(msg string, args ...interface{}) { l.line(Cyan, "EVENT", msg, args...) }
func (l *Logger) HTTP(msg string, args ...interface{})      { l.line(Gray, "HTTP", msg, args...) }
func (l *Logger) Broker(msg string, args ...interface{})    { l.line(Blue, "AMQP", msg, args...) }

// Package obs builds this system's structured logger using go.uber.org/zap:
// zap.NewProduction()/zap.NewDevelopment() plus logger.Sugar(), built once
// at startup and passed down rather than reached for as a package global,
// so tests and multiple servers-in-one-process don't share state.
package obs

import "go.uber.org/zap"

// NewLogger builds a *zap.SugaredLogger: development mode for readable,
// colorized console output during local work, production mode (JSON,
// sampled) otherwise.
func NewLogger(dev bool) (*zap.SugaredLogger, error) {
	var l *zap.Logger
	var err error
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

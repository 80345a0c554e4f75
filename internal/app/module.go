package app

import "github.com/shandysiswandi/passcode/internal/otp"

func (a *App) initModules() {
	deps := otp.Dependency{
		DBConn:     a.dbConn,
		Goroutine:  a.goroutine,
		Router:     a.router,
		Messaging:  a.messaging,
		Config:     a.config,
		Instrument: a.ins,
		UID:        a.uid,
		OID:        a.oid,
		HMAC:       a.hmac,
		Clock:      a.clock,
		Validator:  a.validator,
	}
	// a nil *redis.Client must not become a non-nil interface
	if a.cacheConn != nil {
		deps.CacheConn = a.cacheConn
	}

	module, err := otp.New(a.ctx, deps)
	if err != nil {
		fatal("failed to init module otp", err)
	}

	a.otp = module
}

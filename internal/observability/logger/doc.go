// Package logger expone un logger Zap único para todo el proceso, con
// loggers "scoped" propagados por context.
//
// Inicialización (una vez, en el comando serve):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "storefront"})
//	defer func() { _ = logger.Sync() }()
//
// En services y controllers:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("vipps.login"))
//	log.Info("customer resolved", logger.CustomerID(id))
//
// Los middlewares HTTP inyectan request_id, method y path en el logger del
// contexto, así que From(ctx) ya los incluye.
package logger

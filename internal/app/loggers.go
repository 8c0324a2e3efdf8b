package app

import (
	"github.com/wangchlxt/Swarm-sub001/internal/activity"
	"github.com/wangchlxt/Swarm-sub001/internal/actor"
	"github.com/wangchlxt/Swarm-sub001/internal/build"
	"github.com/wangchlxt/Swarm-sub001/internal/db"
	"github.com/wangchlxt/Swarm-sub001/internal/directory"
	"github.com/wangchlxt/Swarm-sub001/internal/lock"
	"github.com/wangchlxt/Swarm-sub001/internal/mail"
	"github.com/wangchlxt/Swarm-sub001/internal/queue"
	"github.com/wangchlxt/Swarm-sub001/internal/reconcile"
	"github.com/wangchlxt/Swarm-sub001/internal/review"
	"github.com/wangchlxt/Swarm-sub001/internal/webhook"
	"github.com/wangchlxt/Swarm-sub001/internal/worker"
)

// UseLoggers hands every subsystem its logger from l.
func UseLoggers(l *build.SubLoggers) {
	UseLogger(l.Logger(Subsystem))
	activity.UseLogger(l.Logger(activity.Subsystem))
	actor.UseLogger(l.Logger(actor.Subsystem))
	db.UseLogger(l.Logger(db.Subsystem))
	directory.UseLogger(l.Logger(directory.Subsystem))
	lock.UseLogger(l.Logger(lock.Subsystem))
	mail.UseLogger(l.Logger(mail.Subsystem))
	queue.UseLogger(l.Logger(queue.Subsystem))
	reconcile.UseLogger(l.Logger(reconcile.Subsystem))
	review.UseLogger(l.Logger(review.Subsystem))
	webhook.UseLogger(l.Logger(webhook.Subsystem))
	worker.UseLogger(l.Logger(worker.Subsystem))
}

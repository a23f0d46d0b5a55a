package engine

import (
	"log/slog"
	"time"

	"blogging-web/internal/database"
	"blogging-web/internal/engine/actors"
	"blogging-web/internal/utils"
	"blogging-web/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
)

// Engine coordinates communication between actors
type Engine struct {
	system    *actor.ActorSystem
	userActor *actor.PID
	postActor *actor.PID
	logger    *slog.Logger
}

// NewEngine spawns the user and post actors. events may be nil when nothing
// listens for live activity.
func NewEngine(system *actor.ActorSystem, store database.Store, events websocket.Publisher, metrics *utils.MetricsCollector, logger *slog.Logger, opTimeout time.Duration) *Engine {
	context := system.Root

	userProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewUserActor(store, metrics, logger, opTimeout)
	})
	userPID := context.Spawn(userProps)

	postProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewPostActor(store, events, metrics, logger, opTimeout)
	})
	postPID := context.Spawn(postProps)

	logger.Info("engine started", "user_actor", userPID.Id, "post_actor", postPID.Id)

	return &Engine{
		system:    system,
		userActor: userPID,
		postActor: postPID,
		logger:    logger,
	}
}

// GetUserActor returns the PID of the user actor
func (e *Engine) GetUserActor() *actor.PID {
	return e.userActor
}

// GetPostActor returns the PID of the post actor
func (e *Engine) GetPostActor() *actor.PID {
	return e.postActor
}

// Stop lets both actors finish their mailboxes and waits for them.
func (e *Engine) Stop() {
	for _, pid := range []*actor.PID{e.postActor, e.userActor} {
		if err := e.system.Root.PoisonFuture(pid).Wait(); err != nil {
			e.logger.Warn("actor did not stop cleanly", "pid", pid.Id, "error", err)
		}
	}
}

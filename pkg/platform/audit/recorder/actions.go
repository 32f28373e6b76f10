package recorder

import (
	"context"

	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/requestcontext"
)

const unknownActor = "Unknown"

// Signup records the outcome of an account sign-up. A non-nil err records a
// failure carrying its message.
func (r *Recorder) Signup(ctx context.Context, email, fullName, role string, err error) audit.Event {
	if err != nil {
		return r.RecordFailure(ctx, email, fullName, role, audit.ActionUserSignup, "Signup failed: "+err.Error())
	}
	return r.RecordSuccess(ctx, email, fullName, role, audit.ActionUserSignup, "User signed up successfully")
}

// Login records a successful login.
func (r *Recorder) Login(ctx context.Context, email, fullName, role string) audit.Event {
	return r.RecordSuccess(ctx, email, fullName, role, audit.ActionUserLogin, "User logged in successfully")
}

// LoginFailed records a rejected login. Only the attempted email is known.
func (r *Recorder) LoginFailed(ctx context.Context, email string, err error) audit.Event {
	reason := "invalid credentials"
	if err != nil {
		reason = err.Error()
	}
	return r.RecordFailure(ctx, email, unknownActor, unknownActor, audit.ActionLoginFailed, "Failed login attempt: "+reason)
}

// DomainAdded records creation of a domain by the calling administrator.
func (r *Recorder) DomainAdded(ctx context.Context, domain string) audit.Event {
	return r.domainEvent(ctx, audit.ActionDomainAdded, "Added new domain: "+domain)
}

// DomainUpdated records an update to a domain by the calling administrator.
func (r *Recorder) DomainUpdated(ctx context.Context, domain string) audit.Event {
	return r.domainEvent(ctx, audit.ActionDomainUpdated, "Updated domain: "+domain)
}

// DomainDeleted records removal of a domain by the calling administrator.
func (r *Recorder) DomainDeleted(ctx context.Context, domain string) audit.Event {
	return r.domainEvent(ctx, audit.ActionDomainDeleted, "Deleted domain: "+domain)
}

func (r *Recorder) domainEvent(ctx context.Context, action, details string) audit.Event {
	actor := r.actorFrom(ctx)
	return r.RecordSuccess(ctx, actor.Email, actor.Name, actor.Role, action, details)
}

// actorFrom resolves the caller field by field, filling gaps from the
// fallback actor.
func (r *Recorder) actorFrom(ctx context.Context) Actor {
	actor := r.fallback
	caller, ok := requestcontext.Actor(ctx)
	if !ok {
		return actor
	}
	if caller.Email != "" {
		actor.Email = caller.Email
	}
	if caller.Name != "" {
		actor.Name = caller.Name
	}
	if caller.Role != "" {
		actor.Role = caller.Role
	}
	return actor
}

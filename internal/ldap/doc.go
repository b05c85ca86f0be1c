/*
Package ldap implements the directory session used to manage SSH public keys
stored on user entries.

A Session owns exactly one connection to one of the configured server URIs
for the duration of a single logical operation (list, add, or delete). Its
lifecycle is a strict state machine:

	Unconnected -> Connected -> Closed

Connect tries each configured URI in order and keeps the first endpoint that
accepts a transport connection. Bind then authenticates either as an explicit
bind DN or as the target user's own identity (uid=<login>,<baseDN>). The key
operations locate the user's entry fresh on every call and mutate the
multi-valued sshPublicKey attribute.

# Error Handling

Every failure is classified into the Kind taxonomy (connectivity,
authentication, configuration, not-found, ambiguous, duplicate-key,
directory-write, local-input, usage). The package never formats user-facing
text; callers render Error values and map Kind onto a process exit code.

# Consistency

The directory offers no cross-request transaction boundary. Removal is a
read of the current values followed by one modify-delete per matched value,
so a concurrent writer can change the attribute inside that window and a
failing delete leaves earlier deletes applied. The session reports this
honestly instead of pretending the operation is atomic.
*/
package ldap

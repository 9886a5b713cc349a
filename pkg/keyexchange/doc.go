// Package keyexchange runs the post-pairing handshake.
//
// Once two devices are paired each side sends its public key in a single
// KEY_EXCHANGE message. Receiving the partner's KEY_EXCHANGE confirms that
// the partner holds our key, at which point the partner's key is handed to
// the notification sink exactly once. Either side may additionally relay one
// short URL to the other.
//
// Every step happens at most once per session. A step whose send fails is
// retried on the next Run; nothing else is retried.
package keyexchange

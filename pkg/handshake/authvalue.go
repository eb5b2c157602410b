package handshake

// authValueServer builds the byte string the server signs and the client
// verifies: Yc||Ys (spec.md §4.2, GLOSSARY "Authentication value").
func authValueServer(ycPub, ysPub []byte) []byte {
	out := make([]byte, 0, len(ycPub)+len(ysPub))
	out = append(out, ycPub...)
	out = append(out, ysPub...)
	return out
}

// authValueClient builds the byte string the client signs and the server
// verifies: name||Yc||Ys.
func authValueClient(name string, ycPub, ysPub []byte) []byte {
	out := make([]byte, 0, len(name)+len(ycPub)+len(ysPub))
	out = append(out, name...)
	out = append(out, ycPub...)
	out = append(out, ysPub...)
	return out
}

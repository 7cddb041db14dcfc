package core

// roomChannel groups the clients currently joined to one room endpoint.
// Access is guarded by the hub's room table lock.
type roomChannel struct {
	endpoint string
	clients  map[*Client]struct{}
}

func newRoomChannel(endpoint string) *roomChannel {
	return &roomChannel{
		endpoint: endpoint,
		clients:  make(map[*Client]struct{}),
	}
}

func (r *roomChannel) add(c *Client) {
	r.clients[c] = struct{}{}
}

func (r *roomChannel) remove(c *Client) {
	delete(r.clients, c)
}

func (r *roomChannel) empty() bool {
	return len(r.clients) == 0
}

// broadcast queues an event for every joined client. A peer that vanished
// mid-iteration just drops the event; the batch never fails.
func (r *roomChannel) broadcast(ev *Event) {
	for client := range r.clients {
		client.send(ev)
	}
}

// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in chat page.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades the request to a WebSocket, wraps it in a
// Client and hands it to the gateway, which starts the client's pumps.
func WebSocketHandler(gateway *Gateway) gin.HandlerFunc {
	policy := newOriginPolicy(gateway.cfg.AllowedOrigins, gateway.log)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     policy.check,
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			gateway.log.Warn("WebSocket upgrade failed", "addr", c.Request.RemoteAddr, "error", err)
			return
		}

		client := NewClient(conn, gateway, c.Request.RemoteAddr)
		if !gateway.admit(client) {
			client.log.Info("Gateway shutting down; refusing connection")
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			_ = conn.Close()
		}
	}
}

// HealthHandler reports that the server is up.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// ChatPageHandler serves a minimal browser client speaking the envelope
// protocol. It is used when no STATIC_DIR frontend build is configured.
func ChatPageHandler(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(chatPageHTML))
}

const chatPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Chat Relay</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        .system { color: gray; font-style: italic; }
        .error { color: #721c24; }
    </style>
</head>
<body>
    <h1>Chat Relay</h1>

    <div id="status" class="status disconnected">Disconnected</div>
    <div>Online: <span id="count">0</span> &mdash; <span id="users"></span></div>

    <div id="joinForm">
        <input type="text" id="nameInput" placeholder="Choose a name (max 16)" maxlength="16">
        <button onclick="join()">Join</button>
        <span id="joinError" class="error"></span>
    </div>

    <div id="chatForm" style="display:none">
        <input type="text" id="messageInput" placeholder="Type a message...">
        <button onclick="sendMessage()">Send</button>
    </div>

    <div id="messages"></div>

    <script>
        const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(proto + location.host + '/ws');
        const messagesDiv = document.getElementById('messages');
        const statusDiv = document.getElementById('status');

        function addLine(text, cls) {
            const line = document.createElement('div');
            if (cls) { line.className = cls; }
            line.textContent = text;
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        ws.onopen = function() {
            statusDiv.textContent = 'Connected';
            statusDiv.className = 'status connected';
        };

        ws.onclose = function() {
            statusDiv.textContent = 'Disconnected';
            statusDiv.className = 'status disconnected';
        };

        ws.onmessage = function(event) {
            const msg = JSON.parse(event.data);
            switch (msg.type) {
                case 'join_response':
                    if (msg.success) {
                        document.getElementById('joinForm').style.display = 'none';
                        document.getElementById('chatForm').style.display = 'block';
                    } else {
                        document.getElementById('joinError').textContent = msg.error;
                    }
                    break;
                case 'chat_message':
                    addLine('[' + msg.timestamp + '] ' + msg.user + ': ' + msg.message,
                        msg.user === 'System' ? 'system' : '');
                    break;
                case 'user_count':
                    document.getElementById('count').textContent = msg.count;
                    break;
                case 'user_list':
                    document.getElementById('users').textContent = msg.users.join(', ');
                    break;
            }
        };

        function join() {
            const name = document.getElementById('nameInput').value;
            ws.send(JSON.stringify({type: 'join_request', name: name}));
        }

        function sendMessage() {
            const input = document.getElementById('messageInput');
            const message = input.value.trim();
            if (message) {
                ws.send(JSON.stringify({type: 'chat_message', message: message}));
                input.value = '';
            }
        }

        document.getElementById('messageInput').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { sendMessage(); }
        });
        document.getElementById('nameInput').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { join(); }
        });
    </script>
</body>
</html>`

package web

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>appwatch</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #f5f5f5;
            color: #333;
            padding: 20px;
        }
        .current {
            font-size: 1.4rem;
            margin-bottom: 24px;
        }
        .current strong { color: #3498db; }
        .dashboard { display: flex; gap: 20px; flex-wrap: wrap; }
        .report-box {
            flex: 1;
            min-width: 300px;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
            padding: 24px;
        }
        .report-box h2 {
            color: #2c3e50;
            border-bottom: 2px solid #3498db;
            padding-bottom: 10px;
        }
        .app-item {
            display: flex;
            justify-content: space-between;
            padding: 12px 8px;
            border-bottom: 1px solid #eee;
            background: linear-gradient(90deg, rgba(52,152,219,0.15) var(--bar-width, 0%), transparent 0);
        }
        .app-time { color: #7f8c8d; }
        .app-percentage { color: #3498db; font-weight: 600; margin-left: 10px; }
        .loading { color: #7f8c8d; font-style: italic; }
        .total { margin-top: 20px; font-weight: 600; color: #2c3e50; }
    </style>
</head>
<body>
    <div class="current">Foreground: <strong id="current">unknown</strong></div>
    <div class="dashboard">
        <div class="report-box">
            <h2>Last hour</h2>
            <div hx-get="/api/summary?period=hour" hx-trigger="load, every 30s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>
        <div class="report-box">
            <h2>Today</h2>
            <div hx-get="/api/summary?period=day" hx-trigger="load, every 30s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>
        <div class="report-box">
            <h2>This Week</h2>
            <div hx-get="/api/summary?period=week" hx-trigger="load, every 30s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>
    </div>
    <script>
        const current = document.getElementById('current');
        fetch('/api/current').then(r => r.json()).then(s => {
            if (s.appId) current.textContent = s.appId;
        });
        const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(proto + location.host + '/api/stream');
        ws.onmessage = (msg) => {
            const frame = JSON.parse(msg.data);
            if (frame.event === 'onAppChanged') current.textContent = frame.data.appId;
        };
    </script>
</body>
</html>`

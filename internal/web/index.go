package web

// Single-page UI: wallet + trade form on the left, shared chat on the right.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Paperfloor</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 2rem;
      background: #111;
      color: #eee;
      font-family: 'Space Mono', monospace;
    }
    h1 { font-size: 1.2rem; letter-spacing: .2em; }
    #layout { display: flex; gap: 2rem; flex-wrap: wrap; }
    .panel {
      flex: 1 1 340px;
      border: 2px solid #444;
      padding: 1rem;
      background: #181818;
    }
    .pending { color: #888; font-style: italic; }
    .failed { color: #c55; }
    #messages { max-height: 320px; overflow-y: auto; margin: 0; padding: 0; list-style: none; }
    #messages li { padding: .25rem 0; border-bottom: 1px solid #242424; }
    input, select, button, textarea {
      background: #222; color: #eee; border: 1px solid #555;
      padding: .4rem; font-family: inherit;
    }
    button { cursor: pointer; }
    #error { color: #c55; min-height: 1.2rem; }
    #advice { white-space: pre-wrap; color: #9c9; }
    table { width: 100%; border-collapse: collapse; }
    td, th { text-align: left; padding: .25rem; border-bottom: 1px solid #242424; }
  </style>
</head>
<body>
  <h1>PAPERFLOOR</h1>
  <div id="layout">
    <div class="panel">
      <h2>Wallet</h2>
      <div id="wallet">loading…</div>
      <h2>Prices</h2>
      <table id="prices"></table>
      <h2>Trade</h2>
      <form id="trade">
        <select name="side"><option>buy</option><option>sell</option></select>
        <input name="symbol" placeholder="BTC" />
        <input name="amount" placeholder="amount" />
        <button type="submit">Execute</button>
      </form>
      <div id="error"></div>
      <h2>Advice</h2>
      <button id="askAdvice">Ask</button>
      <div id="advice"></div>
    </div>
    <div class="panel">
      <h2>Chat <span id="chatStatus"></span></h2>
      <ul id="messages"></ul>
      <form id="send">
        <textarea name="text" rows="2" cols="40" placeholder="message"></textarea>
        <button type="submit">Send</button>
      </form>
    </div>
  </div>
  <script>
    const walletEl = document.getElementById('wallet');
    const errorEl = document.getElementById('error');

    const walletStream = new EventSource('/wallet/stream');
    walletStream.addEventListener('wallet', (e) => {
      const s = JSON.parse(e.data);
      walletEl.textContent = s.quote + ' / ' + s.base + ' (' + s.pair + ')';
    });

    const chatStream = new EventSource('/chat/stream');
    chatStream.addEventListener('chat', (e) => {
      const view = JSON.parse(e.data);
      document.getElementById('chatStatus').textContent = '[' + view.status + ']';
      const list = document.getElementById('messages');
      list.innerHTML = '';
      for (const m of view.messages) {
        const li = document.createElement('li');
        li.textContent = m.author + ': ' + m.text;
        if (m.status !== 'committed') li.classList.add(m.status);
        list.appendChild(li);
      }
      list.scrollTop = list.scrollHeight;
    });

    async function loadPrices() {
      const res = await fetch('/prices');
      if (!res.ok) return;
      const quotes = await res.json();
      const table = document.getElementById('prices');
      table.innerHTML = '';
      for (const q of quotes) {
        const row = table.insertRow();
        row.insertCell().textContent = q.symbol;
        row.insertCell().textContent = q.price;
        row.insertCell().textContent = q.changePercent + '%';
      }
    }
    loadPrices();
    setInterval(loadPrices, 30000);

    const tradeForm = document.getElementById('trade');
    tradeForm.addEventListener('submit', async (e) => {
      e.preventDefault();
      const submit = tradeForm.querySelector('button');
      submit.disabled = true;
      errorEl.textContent = '';
      const form = new FormData(tradeForm);
      try {
        const res = await fetch('/trade', {
          method: 'POST',
          body: JSON.stringify(Object.fromEntries(form)),
        });
        if (!res.ok) errorEl.textContent = await res.text();
      } finally {
        // amount is cleared whether the order committed or was rejected
        tradeForm.elements.amount.value = '';
        submit.disabled = false;
      }
    });

    const sendForm = document.getElementById('send');
    sendForm.addEventListener('submit', async (e) => {
      e.preventDefault();
      const submit = sendForm.querySelector('button');
      submit.disabled = true;
      const form = new FormData(sendForm);
      try {
        const res = await fetch('/chat/send', {
          method: 'POST',
          body: JSON.stringify(Object.fromEntries(form)),
        });
        if (res.ok) sendForm.reset();
      } finally {
        submit.disabled = false;
      }
    });

    document.getElementById('askAdvice').addEventListener('click', async () => {
      const el = document.getElementById('advice');
      el.textContent = '…';
      const res = await fetch('/advice', { method: 'POST' });
      el.textContent = res.ok ? (await res.json()).advice : await res.text();
    });
  </script>
</body>
</html>`

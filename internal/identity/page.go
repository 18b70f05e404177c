package identity

import (
	"bytes"
	"html/template"
)

var linkPage = template.Must(template.New("link").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Link your wallet</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 28rem; margin: 3rem auto; padding: 0 1rem; }
button { font-size: 1rem; padding: .75rem 1.5rem; }
#status { margin-top: 1rem; }
</style>
</head>
<body>
<h1>Link your wallet</h1>
<p>Sign the message below to link this wallet to your chat account. Signing is free and sends no transaction.</p>
<pre>{{.Message}}</pre>
<button id="link">Connect &amp; sign</button>
<p id="status"></p>
<script>
const chatId = {{.ChatID}};
const message = {{.Message}};
const callbackURL = {{.CallbackURL}};
const status = document.getElementById("status");

document.getElementById("link").addEventListener("click", async () => {
  if (!window.ethereum) {
    status.textContent = "No wallet found. Open this page in your wallet's browser.";
    return;
  }
  try {
    const [account] = await window.ethereum.request({ method: "eth_requestAccounts" });
    const signature = await window.ethereum.request({ method: "personal_sign", params: [message, account] });
    const res = await fetch(callbackURL, {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ chatId: String(chatId), account, signature, message }),
    });
    status.textContent = res.ok ? "Wallet linked. You can return to the chat." : "Linking failed: " + (await res.text());
  } catch (err) {
    status.textContent = "Linking cancelled: " + err.message;
  }
});
</script>
</body>
</html>
`))

type linkPageData struct {
	ChatID      int64
	Message     string
	CallbackURL string
}

func renderLinkPage(data linkPageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := linkPage.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

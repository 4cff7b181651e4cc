package rod

// HTML fixtures served by the test HTTP server.
const (
	basicHTML = `<!DOCTYPE html>
<html lang="en">
<head>
	<title>Test Page</title>
	<meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
	<h1>Hello World</h1>
	<p>This page has a handful of words so the observation snapshot can count them.</p>
</body>
</html>`

	navHTML = `<!DOCTYPE html>
<html lang="en">
<head>
	<title>Shop</title>
	<meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
	<header>
		<nav>
			<a href="/products" id="nav-products">Products</a>
			<a href="/about" id="nav-about">About</a>
		</nav>
		<input type="search" name="search" placeholder="Search products" />
	</header>
	<main>
		<a href="/products/1">First product</a>
		<button id="cta">Add to cart</button>
	</main>
	<footer>
		<a href="/legal">Legal</a>
	</footer>
</body>
</html>`

	formHTML = `<!DOCTYPE html>
<html lang="en">
<head><title>Contact</title></head>
<body>
	<form id="contact">
		<label for="email">Email</label>
		<input id="email" type="email" name="email" />
		<label for="message">Message</label>
		<textarea id="message" name="message"></textarea>
		<button id="send" type="submit">Send</button>
	</form>
</body>
</html>`

	loginHTML = `<!DOCTYPE html>
<html lang="en">
<head><title>Sign in</title></head>
<body>
	<form id="login">
		<input id="user" type="text" name="username" placeholder="Username" />
		<input id="pass" type="password" name="password" placeholder="Password" />
		<button type="submit">Sign in</button>
	</form>
</body>
</html>`

	clickHTML = `<!DOCTYPE html>
<html lang="en">
<head><title>Click</title></head>
<body>
	<button id="testBtn">Click Me</button>
	<div id="result"></div>
	<script>
		document.getElementById('testBtn').addEventListener('click', function() {
			document.getElementById('result').textContent = 'Clicked!';
		});
	</script>
</body>
</html>`

	unhealthyHTML = `<!DOCTYPE html>
<html>
<head><title>Broken</title></head>
<body>
	<img src="/missing.jpg" />
	<a href="/tiny" style="display:inline-block;width:20px;height:20px;">x</a>
</body>
</html>`

	overlayHTML = `<!DOCTYPE html>
<html lang="en">
<head><title>Overlay</title></head>
<body>
	<h1>Content underneath</h1>
	<div id="cookie-banner" class="cookie-consent" style="position:fixed;bottom:0;left:0;width:100%;height:80px;background:#eee;">
		<span>We use cookies.</span>
		<button id="accept" onclick="document.getElementById('cookie-banner').style.display='none'">Accept</button>
	</div>
</body>
</html>`

	wideHTML = `<!DOCTYPE html>
<html lang="en">
<head><title>Wide</title></head>
<body style="width: 2000px; height: 1200px; background: red;">
	<h1>Large Page</h1>
</body>
</html>`

	consoleErrorHTML = `<!DOCTYPE html>
<html lang="en">
<head><title>Noisy</title></head>
<body>
	<h1>Page with a script problem</h1>
	<script>console.error('boom from the page');</script>
</body>
</html>`
)

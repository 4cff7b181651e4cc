package rod

// Page-side scripts. Each returns a plain JSON-serializable value; the Go
// side decodes with unmarshalEval. Selectors produced here prefer stable
// attributes (data-testid, id, name) over positional CSS paths.

const jsDumpStorage = `() => {
	const dump = (s) => {
		const out = {};
		try {
			for (let i = 0; i < s.length; i++) {
				const k = s.key(i);
				out[k] = String(s.getItem(k)).slice(0, 200);
			}
		} catch (e) {}
		return out;
	};
	return { local: dump(window.localStorage), session: dump(window.sessionStorage) };
}`

// jsDiscoverElements ranks the interactive surface of the page. Priority
// runs 1..10; navigation and forms outrank content links, footer and
// sidebar links trail. When a page exposes almost no categorized links,
// uncategorized ones get a midlevel fallback priority so sparse pages
// still yield work for the crawler.
const jsDiscoverElements = `() => {
	const results = [];
	const seen = new Set();

	const cssPath = (el) => {
		if (el.dataset && el.dataset.testid) return '[data-testid="' + el.dataset.testid + '"]';
		if (el.id) return '#' + CSS.escape(el.id);
		const parts = [];
		let node = el;
		while (node && node.nodeType === 1 && parts.length < 5) {
			let part = node.tagName.toLowerCase();
			if (node.id) { parts.unshift(part + '#' + CSS.escape(node.id)); break; }
			const siblings = node.parentNode ? Array.from(node.parentNode.children).filter(c => c.tagName === node.tagName) : [];
			if (siblings.length > 1) part += ':nth-of-type(' + (siblings.indexOf(node) + 1) + ')';
			parts.unshift(part);
			node = node.parentNode;
		}
		return parts.join(' > ');
	};

	const visible = (el) => {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden';
	};

	const add = (el, role, priority) => {
		const sel = cssPath(el);
		if (seen.has(sel)) return;
		seen.add(sel);
		results.push({
			role: role,
			priority: priority,
			text: (el.innerText || el.value || '').trim().slice(0, 120),
			href: el.href || '',
			selector: sel,
			test_id: (el.dataset && el.dataset.testid) || '',
			aria_label: el.getAttribute('aria-label') || '',
			name: el.getAttribute('name') || '',
			id: el.id || '',
			placeholder: el.getAttribute('placeholder') || '',
			sem_role: el.getAttribute('role') || ''
		});
	};

	document.querySelectorAll('nav a, header a, [role="navigation"] a').forEach(a => {
		if (visible(a)) add(a, 'nav_link', 9);
	});

	document.querySelectorAll('select, [role="combobox"], [aria-haspopup="listbox"]').forEach(el => {
		if (visible(el)) add(el, 'dropdown', 8);
	});

	document.querySelectorAll('form').forEach(f => {
		if (visible(f)) add(f, 'form', 8);
	});

	document.querySelectorAll('input[type="search"], input[name*="search" i], input[placeholder*="search" i], [role="searchbox"]').forEach(el => {
		if (visible(el)) add(el, 'search', 7);
	});

	document.querySelectorAll('button, [role="button"], a.btn, a[class*="button" i], a[class*="cta" i]').forEach(el => {
		if (visible(el)) add(el, 'cta', 6);
	});

	document.querySelectorAll('main a, article a, [role="main"] a').forEach(a => {
		if (visible(a)) add(a, 'content_link', 5);
	});

	document.querySelectorAll('footer a').forEach(a => {
		if (visible(a)) add(a, 'footer_link', 2);
	});
	document.querySelectorAll('aside a, [role="complementary"] a').forEach(a => {
		if (visible(a)) add(a, 'sidebar_link', 2);
	});

	const linkCount = results.filter(r => r.href).length;
	if (linkCount < 5) {
		document.querySelectorAll('a[href]').forEach(a => {
			if (visible(a)) add(a, 'content_link', 4);
		});
	}

	return results.slice(0, 200);
}`

// jsCandidates lists resolution candidates, kind is "clickable",
// "fillable" or "any".
const jsCandidates = `(kind) => {
	const results = [];
	const selectorFor = (el) => {
		if (el.dataset && el.dataset.testid) return '[data-testid="' + el.dataset.testid + '"]';
		if (el.id) return '#' + CSS.escape(el.id);
		if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"]';
		const parts = [];
		let node = el;
		while (node && node.nodeType === 1 && parts.length < 5) {
			let part = node.tagName.toLowerCase();
			if (node.id) { parts.unshift(part + '#' + CSS.escape(node.id)); break; }
			const siblings = node.parentNode ? Array.from(node.parentNode.children).filter(c => c.tagName === node.tagName) : [];
			if (siblings.length > 1) part += ':nth-of-type(' + (siblings.indexOf(node) + 1) + ')';
			parts.unshift(part);
			node = node.parentNode;
		}
		return parts.join(' > ');
	};

	const visible = (el) => {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden';
	};

	let query;
	if (kind === 'fillable') {
		query = 'input:not([type="hidden"]), textarea, select, [contenteditable="true"]';
	} else if (kind === 'clickable') {
		query = 'a[href], button, [role="button"], input[type="submit"], input[type="button"], [onclick]';
	} else {
		query = 'a[href], button, [role="button"], input:not([type="hidden"]), textarea, select';
	}

	const seen = new Set();
	document.querySelectorAll(query).forEach(el => {
		if (!visible(el) || results.length >= 150) return;
		const sel = selectorFor(el);
		if (seen.has(sel)) return;
		seen.add(sel);
		results.push({
			index: results.length,
			tag: el.tagName.toLowerCase(),
			type: el.getAttribute('type') || '',
			text: (el.innerText || el.value || '').trim().slice(0, 100),
			test_id: (el.dataset && el.dataset.testid) || '',
			aria_label: el.getAttribute('aria-label') || '',
			sem_role: el.getAttribute('role') || '',
			name: el.getAttribute('name') || '',
			id: el.id || '',
			placeholder: el.getAttribute('placeholder') || '',
			href: el.href || '',
			selector: sel
		});
	});
	return results;
}`

// jsObserve builds the verification snapshot.
const jsObserve = `() => {
	const visibleText = (sel) => {
		for (const el of document.querySelectorAll(sel)) {
			const r = el.getBoundingClientRect();
			if (r.width > 0 && r.height > 0 && el.innerText && el.innerText.trim()) {
				return el.innerText.trim().slice(0, 300);
			}
		}
		return '';
	};

	const body = document.body ? document.body.innerText || '' : '';
	const noResultsRe = /(no results|nothing found|0 results|no matches|ничего не найдено)/i;

	const resultSelectors = [
		'[class*="result" i]', '[class*="card" i]', '[class*="product" i]',
		'[class*="item" i]', 'article', '[role="listitem"]'
	];
	let resultCount = 0;
	for (const sel of resultSelectors) {
		const n = document.querySelectorAll(sel).length;
		if (n > resultCount) resultCount = n;
	}

	return {
		url: window.location.href,
		title: document.title,
		word_count: body.split(/\s+/).filter(Boolean).length,
		result_count: resultCount,
		no_results_text: noResultsRe.test(body.slice(0, 20000)),
		error_region_text: visibleText('[role="alert"], [class*="error" i], [class*="invalid" i], [aria-invalid="true"]'),
		success_text: visibleText('[class*="success" i], [class*="confirm" i], [class*="thank" i]'),
		has_password_field: !!document.querySelector('input[type="password"]'),
		has_captcha: !!document.querySelector('[class*="captcha" i], iframe[src*="captcha" i], iframe[src*="recaptcha" i]'),
		login_form_visible: !!document.querySelector('form input[type="password"]')
	};
}`

// jsProbe collects the DOM health signals for the detection tiers.
const jsProbe = `() => {
	const brokenImages = [];
	document.querySelectorAll('img').forEach(img => {
		if (img.complete && img.naturalWidth === 0 && img.src && !img.src.startsWith('data:')) {
			brokenImages.push(img.src.slice(0, 300));
		}
	});

	const mixed = [];
	if (window.location.protocol === 'https:') {
		document.querySelectorAll('img[src^="http:"], script[src^="http:"], link[href^="http:"], iframe[src^="http:"]').forEach(el => {
			mixed.push((el.src || el.href).slice(0, 300));
		});
	}

	let smallTargets = 0;
	document.querySelectorAll('a[href], button, [role="button"], input[type="submit"]').forEach(el => {
		const r = el.getBoundingClientRect();
		if (r.width > 0 && r.height > 0 && (r.width < 44 || r.height < 44)) smallTargets++;
	});

	let missingAlt = 0;
	document.querySelectorAll('img').forEach(img => {
		if (!img.hasAttribute('alt')) missingAlt++;
	});

	let missingLabel = 0;
	document.querySelectorAll('input:not([type="hidden"]):not([type="submit"]):not([type="button"]), textarea, select').forEach(el => {
		const hasLabel = el.labels && el.labels.length > 0;
		const hasAria = el.getAttribute('aria-label') || el.getAttribute('aria-labelledby');
		if (!hasLabel && !hasAria && !el.getAttribute('placeholder')) missingLabel++;
	});

	const bodyFont = document.body ? parseFloat(window.getComputedStyle(document.body).fontSize) : 16;

	return {
		url: window.location.href,
		broken_images: brokenImages.slice(0, 20),
		has_viewport_meta: !!document.querySelector('meta[name="viewport"]'),
		mixed_content: mixed.slice(0, 20),
		horizontal_overflow: document.documentElement.scrollWidth > window.innerWidth + 5,
		small_touch_targets: smallTargets,
		images_missing_alt: missingAlt,
		inputs_missing_label: missingLabel,
		has_lang_attr: !!document.documentElement.getAttribute('lang'),
		has_title: !!(document.title && document.title.trim()),
		body_font_px: isNaN(bodyFont) ? 16 : bodyFont
	};
}`

// jsMetrics reads the navigation and paint timing entries.
const jsMetrics = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	let fcp = 0;
	for (const p of performance.getEntriesByType('paint')) {
		if (p.name === 'first-contentful-paint') fcp = Math.round(p.startTime);
	}
	return {
		load_time_ms: nav ? Math.round(nav.loadEventEnd - nav.startTime) : 0,
		ttfb_ms: nav ? Math.round(nav.responseStart - nav.startTime) : 0,
		fcp_ms: fcp,
		dom_node_count: document.getElementsByTagName('*').length
	};
}`

// jsDismissOverlays closes cookie banners, modals and newsletter popups
// that sit above the page and would swallow clicks. Returns how many
// dismiss controls it clicked.
const jsDismissOverlays = `() => {
	let closed = 0;
	const acceptRe = /(accept|agree|got it|ok|allow|понятно|принять|close|dismiss|no thanks|×|✕)/i;

	const overlays = [];
	document.querySelectorAll('[class*="cookie" i], [id*="cookie" i], [class*="consent" i], [class*="modal" i], [class*="popup" i], [class*="overlay" i], [role="dialog"]').forEach(el => {
		const style = window.getComputedStyle(el);
		const r = el.getBoundingClientRect();
		if ((style.position === 'fixed' || style.position === 'sticky' || el.getAttribute('role') === 'dialog') &&
			r.width > 0 && r.height > 0 && style.display !== 'none' && style.visibility !== 'hidden') {
			overlays.push(el);
		}
	});

	for (const overlay of overlays) {
		let clicked = false;
		for (const btn of overlay.querySelectorAll('button, a, [role="button"]')) {
			const label = ((btn.innerText || '') + ' ' + (btn.getAttribute('aria-label') || '')).trim();
			if (acceptRe.test(label)) {
				btn.click();
				closed++;
				clicked = true;
				break;
			}
		}
		if (!clicked) {
			const x = overlay.querySelector('[class*="close" i], [aria-label*="close" i]');
			if (x) { x.click(); closed++; }
		}
	}
	return closed;
}`
